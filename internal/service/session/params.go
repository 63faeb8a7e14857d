package session

import (
	"time"

	"github.com/nhohoai/study-engine/internal/config"
	"github.com/nhohoai/study-engine/internal/study"
)

// ParamsFromConfig converts the configured engine constants to study.Params.
func ParamsFromConfig(sc config.StudyConfig, cc config.CollaboratorConfig) study.Params {
	return study.Params{
		QuestionLimit:    sc.QuestionLimit,
		NewLimit:         sc.NewLimit,
		OldTarget:        sc.OldTarget,
		MaxAppearPerCard: sc.MaxAppearPerCard,
		MinGap:           sc.MinGap,
		NumChoices:       sc.NumChoices,
		AutoNext:         time.Duration(sc.AutoNextMS) * time.Millisecond,
		Tick:             time.Duration(sc.TickMS) * time.Millisecond,
		RemoteSummary:    cc.RemoteSummary,
	}
}
