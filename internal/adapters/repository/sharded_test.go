package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/rai/internal/adapters/repository"
	"github.com/okian/rai/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func res(playID, agentID string, composite float64) model.Result {
	return model.Result{
		PlayID:    playID,
		AgentID:   agentID,
		Role:      model.RoleUnclassified,
		Composite: composite,
	}
}

func TestShardedStoreQueries(t *testing.T) {
	Convey("Given a store with two scored plays", t, func() {
		s := repository.NewShardedStore(repository.WithShardCount(4))
		ctx := context.Background()

		So(s.PutResults(ctx, []model.Result{
			res("play-1", "wr1", 0.8),
			res("play-1", "cb7", 0.3),
		}), ShouldBeNil)
		So(s.PutResults(ctx, []model.Result{
			res("play-2", "wr1", 0.2),
			res("play-2", "cb7", 0.9),
		}), ShouldBeNil)

		Convey("Then play queries return every agent of that play", func() {
			rows, err := s.ResultsByPlay(ctx, "play-1")
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
		})

		Convey("Then agent queries return every play of that agent", func() {
			rows, err := s.ResultsByAgent(ctx, "wr1")
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
		})

		Convey("Then unknown keys report not found", func() {
			_, err := s.ResultsByPlay(ctx, "ghost")
			So(err, ShouldEqual, repository.ErrNotFound)
			_, err = s.ResultsByAgent(ctx, "ghost")
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("Then ranking uses each agent's best composite", func() {
			top, err := s.TopN(ctx, 10)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 2)
			So(top[0].AgentID, ShouldEqual, "cb7")
			So(top[0].Composite, ShouldEqual, 0.9)
			So(top[0].PlayID, ShouldEqual, "play-2")
			So(top[1].AgentID, ShouldEqual, "wr1")
			So(top[1].Composite, ShouldEqual, 0.8)
		})

		Convey("Then Rank resolves a single agent's row", func() {
			e, err := s.Rank(ctx, "wr1")
			So(err, ShouldBeNil)
			So(e.Rank, ShouldEqual, 2)
			So(e.PlayID, ShouldEqual, "play-1")

			_, err = s.Rank(ctx, "ghost")
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("Then TopN truncates and validates its limit", func() {
			top, err := s.TopN(ctx, 1)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 1)

			_, err = s.TopN(ctx, 0)
			So(err, ShouldEqual, repository.ErrInvalidLimit)
		})

		Convey("Then Count reports distinct agents", func() {
			So(s.Count(ctx), ShouldEqual, 2)
		})
	})
}

func TestShardedStoreIdempotentPuts(t *testing.T) {
	Convey("Given a result stored twice for the same play and agent", t, func() {
		s := repository.NewShardedStore()
		ctx := context.Background()

		So(s.PutResults(ctx, []model.Result{res("play-1", "wr1", 0.8)}), ShouldBeNil)
		So(s.PutResults(ctx, []model.Result{res("play-1", "wr1", 0.5)}), ShouldBeNil)

		Convey("Then the later row replaces the earlier one everywhere", func() {
			rows, err := s.ResultsByAgent(ctx, "wr1")
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 1)
			So(rows[0].Composite, ShouldEqual, 0.5)

			byPlay, err := s.ResultsByPlay(ctx, "play-1")
			So(err, ShouldBeNil)
			So(len(byPlay), ShouldEqual, 1)

			Convey("And the ranking reflects the replacement", func() {
				e, err := s.Rank(ctx, "wr1")
				So(err, ShouldBeNil)
				So(e.Composite, ShouldEqual, 0.5)
			})
		})
	})
}

func TestShardedStoreRankingTies(t *testing.T) {
	Convey("Given agents with identical composites", t, func() {
		s := repository.NewShardedStore()
		ctx := context.Background()

		So(s.PutResults(ctx, []model.Result{
			res("play-1", "bbb", 0.5),
			res("play-1", "aaa", 0.5),
			res("play-1", "ccc", 0.5),
		}), ShouldBeNil)

		Convey("Then ties break by agent id ascending", func() {
			top, err := s.TopN(ctx, 3)
			So(err, ShouldBeNil)
			So(top[0].AgentID, ShouldEqual, "aaa")
			So(top[1].AgentID, ShouldEqual, "bbb")
			So(top[2].AgentID, ShouldEqual, "ccc")
			So(top[2].Rank, ShouldEqual, 3)
		})
	})
}

func TestShardedStoreOmissions(t *testing.T) {
	Convey("Given recorded omissions", t, func() {
		s := repository.NewShardedStore()
		ctx := context.Background()

		So(s.MarkOmitted(ctx, model.Omission{PlayID: "p1", Reason: "play id is empty"}), ShouldBeNil)
		So(s.MarkOmitted(ctx, model.Omission{PlayID: "p2", Reason: "non-monotonic time index"}), ShouldBeNil)

		Convey("Then the log preserves order", func() {
			oms := s.Omissions(ctx)
			So(len(oms), ShouldEqual, 2)
			So(oms[0].PlayID, ShouldEqual, "p1")
			So(oms[1].PlayID, ShouldEqual, "p2")
		})
	})
}

func TestShardedStoreConcurrency(t *testing.T) {
	Convey("Given concurrent writers across many agents", t, func() {
		s := repository.NewShardedStore(repository.WithShardCount(8))
		ctx := context.Background()
		const writers = 8
		const perWriter = 50

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					playID := fmt.Sprintf("play-%d-%d", w, i)
					agentID := fmt.Sprintf("agent-%d", (w*perWriter+i)%20)
					_ = s.PutResults(ctx, []model.Result{res(playID, agentID, float64(i))})
				}
			}(w)
		}
		wg.Wait()

		Convey("Then the store holds every distinct agent", func() {
			So(s.Count(ctx), ShouldEqual, 20)
			top, err := s.TopN(ctx, 100)
			So(err, ShouldBeNil)
			So(len(top), ShouldEqual, 20)
		})
	})
}
