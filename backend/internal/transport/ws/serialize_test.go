package ws

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashpile/backend/internal/game"
	"cashpile/backend/internal/money"
	"cashpile/backend/internal/physics"
	"cashpile/backend/internal/world"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTable(t *testing.T) *game.Table {
	t.Helper()
	tbl, err := game.NewTable(game.Options{
		Physics: physics.DefaultConfig(),
		Rand:    rand.New(rand.NewPCG(1, 2)),
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	return tbl
}

func TestPieceCreateMessage(t *testing.T) {
	tbl := newTable(t)
	bill, _ := tbl.Catalog().ByValue(10000)
	coin, _ := tbl.Catalog().ByValue(500)

	p := tbl.Factory().NewPiece(bill, 30000)
	p.RenderID = 7
	msg := NewPieceCreateMessage(p)
	assert.Equal(t, MessageTypeCreate, msg.Type)
	assert.Equal(t, "piece_7", msg.ID)
	assert.Equal(t, "bill", msg.ObjectType)
	assert.Equal(t, int64(10000), msg.Value)
	assert.Equal(t, int64(30000), msg.Represents)
	assert.Equal(t, bill.GeometryKey(), msg.Geometry)
	assert.InDelta(t, money.NoteWidth, msg.Width, 1e-6)
	assert.Equal(t, bill.Front, msg.Front)
	assert.Equal(t, "#9cb78f", msg.Color)
	assert.Equal(t, float32(1), msg.QW)

	c := tbl.Factory().NewPiece(coin, 0)
	msg = NewPieceCreateMessage(c)
	assert.Equal(t, "coin", msg.ObjectType)
	assert.InDelta(t, coin.Radius, msg.Radius, 1e-6)
	assert.Equal(t, int64(500), msg.Represents)
}

func TestStaticCreateMessages(t *testing.T) {
	tbl := newTable(t)
	visible := 0
	ids := make(map[string]bool)
	for _, st := range tbl.Arena().Statics {
		msg := NewStaticCreateMessage(st)
		assert.True(t, msg.Static)
		ids[msg.ID] = true
		if msg.Visible {
			visible++
		}
	}
	assert.True(t, ids["ground"])
	assert.True(t, ids["tray_base"])
	assert.True(t, ids["wall_north"])
	// земля, дно лотка и четыре бортика; стенки невидимы
	assert.Equal(t, 6, visible)
}

func TestDenominationsMessage(t *testing.T) {
	msg := NewDenominationsMessage(money.Yen())
	require.Len(t, msg.Items, 9)
	assert.Equal(t, int64(10000), msg.Items[0].Value)
	assert.Equal(t, int64(5000), msg.Items[0].Exchange)
	assert.Equal(t, "1万円札", msg.Items[0].Label)
	last := msg.Items[len(msg.Items)-1]
	assert.Equal(t, int64(1), last.Value)
	assert.Zero(t, last.Exchange, "1 yen has no exchange target")
	assert.Greater(t, last.Radius, 0.0)
}

func TestPlanReport(t *testing.T) {
	assert.Nil(t, NewPlanReport(money.Plan{}))

	plan := money.NewPlanner(money.Yen()).Plan(16666, rand.New(rand.NewPCG(1, 2)))
	report := NewPlanReport(plan)
	require.NotNil(t, report)
	assert.Equal(t, int64(16666), report.Original)
	assert.Equal(t, int64(1), report.BundleSize)
	assert.Equal(t, int64(16666), report.RepresentedAmount)
	assert.Equal(t, len(plan.Queue), report.Pieces)
	require.NotEmpty(t, report.Counts)
	assert.Equal(t, PlanCount{Value: 10000, Label: "1万円札", Count: 1}, report.Counts[0])
}

func TestStatusMessage(t *testing.T) {
	tbl := newTable(t)
	_, err := tbl.Drop(1234)
	require.NoError(t, err)

	msg := NewStatusMessage(tbl)
	assert.True(t, msg.Running)
	assert.Equal(t, int64(1234), msg.Amount)
	assert.True(t, msg.AssetsReady)
	require.NotNil(t, msg.Plan)
	assert.Equal(t, int64(1234), msg.Plan.Original)
}

func TestUpdateStreamSendsOnlyChanges(t *testing.T) {
	u := newUpdateStream(50 * time.Millisecond)
	assert.False(t, u.Advance(20*time.Millisecond))
	assert.False(t, u.Advance(20*time.Millisecond))
	assert.True(t, u.Advance(20*time.Millisecond))
	assert.False(t, u.Advance(20*time.Millisecond), "accumulator resets after a batch")

	a := &world.Piece{RenderID: 1, Rotation: world.Quaternion{W: 1}}
	b := &world.Piece{RenderID: 2, Position: world.Vector3{X: 1}, Rotation: world.Quaternion{W: 1}}
	u.Track(2, transformOf(b.Position, b.Rotation))

	msg := u.Collect([]*world.Piece{a, b})
	require.NotNil(t, msg)
	assert.Len(t, msg.Updates, 1)
	assert.Contains(t, msg.Updates, "piece_1")

	assert.Nil(t, u.Collect([]*world.Piece{a, b}), "nothing moved")

	b.Position.Y = 0.5
	msg = u.Collect([]*world.Piece{a, b})
	require.NotNil(t, msg)
	assert.Equal(t, float32(0.5), msg.Updates["piece_2"].Y)

	u.Forget(2)
	msg = u.Collect([]*world.Piece{b})
	require.NotNil(t, msg, "forgotten pieces are resent")
}
