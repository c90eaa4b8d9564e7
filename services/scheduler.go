// services/scheduler.go
package services

import (
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartQuestScheduler runs the quest window job every minute.
func (s *QuestService) StartQuestScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			s.ActivateDue()
		}),
	)
}

// StartRiskSweep periodically re-scores users who claimed recently so admin
// dashboards and the next gatekeeper decision see fresh evidence.
func (s *RiskService) StartRiskSweep() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			s.RecomputeActiveUsers(time.Hour)
		}),
	)
}
