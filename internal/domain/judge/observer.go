package judge

import "github.com/okian/playalong/internal/domain/model"

// Observer receives engine notifications synchronously, in resolution order.
// The engine never reads anything back from an observer.
type Observer interface {
	// OnInput is called once per judged edge.
	OnInput(action model.InputAction, result model.InputResult, start bool)
	// OnBonusAchieved is called at most once per engine.
	OnBonusAchieved()
	// OnPerfectBroken is called at most once, on the first miss.
	OnPerfectBroken()
	// OnPerfectHit is called for every non-miss while the run is perfect.
	OnPerfectHit()
	// OnScoreChanged is called after every resolution and mode switch.
	OnScoreChanged(score float64)
}

// NopObserver ignores every notification. Embed it to implement only the
// callbacks you need.
type NopObserver struct{}

func (NopObserver) OnInput(model.InputAction, model.InputResult, bool) {}
func (NopObserver) OnBonusAchieved()                                   {}
func (NopObserver) OnPerfectBroken()                                   {}
func (NopObserver) OnPerfectHit()                                      {}
func (NopObserver) OnScoreChanged(float64)                             {}

// Observers fans notifications out to several observers in order.
type Observers []Observer

func (o Observers) OnInput(action model.InputAction, result model.InputResult, start bool) {
	for _, ob := range o {
		ob.OnInput(action, result, start)
	}
}

func (o Observers) OnBonusAchieved() {
	for _, ob := range o {
		ob.OnBonusAchieved()
	}
}

func (o Observers) OnPerfectBroken() {
	for _, ob := range o {
		ob.OnPerfectBroken()
	}
}

func (o Observers) OnPerfectHit() {
	for _, ob := range o {
		ob.OnPerfectHit()
	}
}

func (o Observers) OnScoreChanged(score float64) {
	for _, ob := range o {
		ob.OnScoreChanged(score)
	}
}
