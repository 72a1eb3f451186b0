package achievement_test

import (
	"testing"
	"time"

	"github.com/okian/eduquest/internal/domain/achievement"
	"github.com/okian/eduquest/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var day0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func chat(ts time.Time) model.Event {
	return model.Event{Kind: model.KindChatMessageSent, Payload: model.Payload{Text: "hola"}, TS: ts}
}

func byID(list []achievement.Achievement) map[string]achievement.Achievement {
	out := make(map[string]achievement.Achievement, len(list))
	for _, a := range list {
		out[a.ID] = a
	}
	return out
}

func TestEvaluate(t *testing.T) {
	Convey("Given no events", t, func() {
		list := achievement.Evaluate(nil)

		Convey("Then nothing is unlocked", func() {
			So(list, ShouldHaveLength, 3)
			So(achievement.Unlocked(list), ShouldBeEmpty)
			for _, a := range list {
				So(a.Progress, ShouldEqual, 0)
				So(a.UnlockedAt, ShouldBeNil)
			}
		})
	})

	Convey("Given one chat message among other events", t, func() {
		events := []model.Event{
			{Kind: model.KindQuestionAnswered, Payload: model.Payload{QuestionID: "1", Category: "academic"}, TS: day0},
			chat(day0.Add(time.Minute)),
		}
		got := byID(achievement.Evaluate(events))

		Convey("Then only the first message is unlocked", func() {
			So(got[achievement.FirstMessage].Unlocked, ShouldBeTrue)
			So(got[achievement.FirstMessage].UnlockedAt.Equal(day0.Add(time.Minute)), ShouldBeTrue)
			So(got[achievement.ChatExpert].Progress, ShouldEqual, 1)
			So(got[achievement.ChatExpert].Unlocked, ShouldBeFalse)
			So(got[achievement.DedicatedStudent].Progress, ShouldEqual, 1)
		})
	})

	Convey("Given 100 chat messages on one day", t, func() {
		events := make([]model.Event, 0, 100)
		for i := 0; i < 100; i++ {
			events = append(events, chat(day0.Add(time.Duration(i)*time.Second)))
		}
		got := byID(achievement.Evaluate(events))

		Convey("Then the chat expert unlocks on the hundredth", func() {
			So(got[achievement.ChatExpert].Unlocked, ShouldBeTrue)
			So(got[achievement.ChatExpert].UnlockedAt.Equal(day0.Add(99*time.Second)), ShouldBeTrue)
			So(got[achievement.DedicatedStudent].Unlocked, ShouldBeFalse)
		})
	})

	Convey("Given chats on seven consecutive days, out of order", t, func() {
		var events []model.Event
		for d := 6; d >= 0; d-- {
			events = append(events, chat(day0.AddDate(0, 0, d)), chat(day0.AddDate(0, 0, d).Add(time.Hour)))
		}
		got := byID(achievement.Evaluate(events))

		Convey("Then the streak unlocks on the seventh day", func() {
			a := got[achievement.DedicatedStudent]
			So(a.Unlocked, ShouldBeTrue)
			So(a.Progress, ShouldEqual, achievement.StreakDays)
			So(a.UnlockedAt.Equal(day0.AddDate(0, 0, 6)), ShouldBeTrue)
		})
	})

	Convey("Given a streak broken by a missing day", t, func() {
		var events []model.Event
		for _, d := range []int{0, 1, 2, 4, 5, 6, 7, 8} {
			events = append(events, chat(day0.AddDate(0, 0, d)))
		}
		got := byID(achievement.Evaluate(events))

		Convey("Then progress is the longest run", func() {
			So(got[achievement.DedicatedStudent].Unlocked, ShouldBeFalse)
			So(got[achievement.DedicatedStudent].Progress, ShouldEqual, 5)
		})
	})
}
