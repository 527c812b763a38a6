package catalog_test

import (
	"testing"

	"github.com/okian/playalong/internal/domain/catalog"
	"github.com/okian/playalong/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type cueEntity struct {
	action model.InputAction
}

func (e cueEntity) InputAction() model.InputAction { return e.action }

func press(beat float64, in model.Input) model.InputAction {
	return model.InputAction{Beat: beat, Method: model.Press, Input: in}
}

func hold(beat, duration float64, m model.Method) model.InputAction {
	return model.InputAction{Beat: beat, Duration: duration, Method: m, Input: model.ButtonA}
}

func TestCatalogOrdering(t *testing.T) {
	Convey("Given entities in authoring order", t, func() {
		entities := []catalog.Entity{
			cueEntity{press(4, model.ButtonA)},
			cueEntity{hold(1, 2, model.LongPress)},
			cueEntity{press(1, model.ButtonB)},
			cueEntity{press(0, model.DpadUp)},
		}
		c := catalog.New(entities)

		Convey("Then actions are sorted by beat with ties in entity order", func() {
			actions := c.Actions()
			So(len(actions), ShouldEqual, 4)
			So(actions[0].Beat, ShouldEqual, 0)
			So(actions[1].ID, ShouldEqual, 1)
			So(actions[1].Method, ShouldEqual, model.LongPress)
			So(actions[2].ID, ShouldEqual, 2)
			So(actions[3].Beat, ShouldEqual, 4)
			for i := 1; i < len(actions); i++ {
				So(actions[i-1].Less(actions[i]), ShouldBeTrue)
			}
		})

		Convey("Then the expected result count counts two-stage actions twice", func() {
			So(c.ExpectedResults(), ShouldEqual, 5)
			So(c.Len(), ShouldEqual, 4)
		})

		Convey("Then actions are grouped by beat", func() {
			groups := c.GroupByBeat()
			So(len(groups), ShouldEqual, 3)
			So(len(groups[1]), ShouldEqual, 2)
			So(groups[1][0].ID, ShouldEqual, 1)
			So(c.Beats(), ShouldResemble, []float64{0, 1, 4})
		})

		Convey("Then no touchscreen is required", func() {
			So(c.RequiresTouchInput(), ShouldBeFalse)
		})

		Convey("Then no bonus is tracked without a trigger", func() {
			_, ok := c.Bonus()
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given an empty catalog", t, func() {
		c := catalog.FromActions(nil)
		So(c.Len(), ShouldEqual, 0)
		So(c.ExpectedResults(), ShouldEqual, 0)
		So(c.Beats(), ShouldBeEmpty)
		So(c.GroupByBeat(), ShouldBeEmpty)
	})
}

func TestCatalogTouch(t *testing.T) {
	Convey("Given a catalog with a touchscreen action", t, func() {
		c := catalog.FromActions([]model.InputAction{press(0, model.ButtonA), press(1, model.TouchTap)})
		So(c.RequiresTouchInput(), ShouldBeTrue)
	})
}

func TestCatalogBonus(t *testing.T) {
	Convey("Given a bonus trigger at the end of a hold", t, func() {
		c := catalog.FromActions([]model.InputAction{
			press(8, model.ButtonA),
			hold(6, 2, model.PressAndHold),
			press(2, model.ButtonA),
		}, catalog.WithBonusBeat(8))

		Convey("Then the hold's end edge wins over the press starting there", func() {
			bonus, ok := c.Bonus()
			So(ok, ShouldBeTrue)
			So(bonus.Action.Method, ShouldEqual, model.PressAndHold)
			So(bonus.OnStart, ShouldBeFalse)
		})
	})

	Convey("Given a bonus trigger at the start of a press", t, func() {
		c := catalog.FromActions([]model.InputAction{
			press(2, model.ButtonA),
			press(2, model.ButtonB),
			press(4, model.ButtonA),
		}, catalog.WithBonusBeat(2))

		Convey("Then the last action starting there is chosen on its start edge", func() {
			bonus, ok := c.Bonus()
			So(ok, ShouldBeTrue)
			So(bonus.Action.Input, ShouldEqual, model.ButtonB)
			So(bonus.OnStart, ShouldBeTrue)
		})
	})

	Convey("Given a bonus trigger at the start of a hold", t, func() {
		c := catalog.FromActions([]model.InputAction{hold(3, 1, model.LongPress)}, catalog.WithBonusBeat(3))
		bonus, ok := c.Bonus()
		So(ok, ShouldBeTrue)
		So(bonus.OnStart, ShouldBeTrue)
	})

	Convey("Given a bonus trigger that matches nothing", t, func() {
		c := catalog.FromActions([]model.InputAction{press(1, model.ButtonA)}, catalog.WithBonusBeat(5))
		_, ok := c.Bonus()
		So(ok, ShouldBeFalse)
	})
}

func TestCatalogFingerprint(t *testing.T) {
	Convey("Given two catalogs with the same actions in different order", t, func() {
		a := catalog.FromActions([]model.InputAction{press(1, model.ButtonA), press(2, model.ButtonB)})
		b := catalog.FromActions([]model.InputAction{press(2, model.ButtonB), press(1, model.ButtonA)})
		c := catalog.FromActions([]model.InputAction{press(1, model.ButtonA), press(3, model.ButtonB)})

		Convey("Then their fingerprints match", func() {
			So(a.Fingerprint(), ShouldEqual, b.Fingerprint())
		})

		Convey("Then a different chart has a different fingerprint", func() {
			So(a.Fingerprint(), ShouldNotEqual, c.Fingerprint())
		})
	})
}
