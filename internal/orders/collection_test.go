package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocha/internal/models"
)

func testRecord(id string, status models.Status) *models.OrderRecord {
	return &models.OrderRecord{
		ID:      id,
		VenueID: "venue-1",
		Items: []models.Item{
			{Name: "Suya", Quantity: 1, UnitPrice: decimal.NewFromInt(2000)},
		},
		Customer:   models.Customer{Name: "Chidi", Phone: "0802"},
		Total:      decimal.NewFromInt(2000),
		CreatedAt:  time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		PickupType: models.PickupTypePickup,
		Status:     status,
	}
}

func TestUpsertInsertsWithRevisionOne(t *testing.T) {
	c := NewCollection(nil)

	res := c.Upsert(testRecord("A", models.StatusPending))
	assert.True(t, res.Created)
	assert.True(t, res.Changed)

	rec, ok := c.Get("A")
	require.True(t, ok)
	assert.Equal(t, int64(1), rec.Revision)
}

func TestStatusNeverRegresses(t *testing.T) {
	c := NewCollection(nil)
	c.Upsert(testRecord("A", models.StatusPending))
	require.NoError(t, c.SetStatus("A", models.StatusReady))

	// A stale snapshot claiming pending must not downgrade the record.
	c.MergeSnapshot([]*models.OrderRecord{testRecord("A", models.StatusPending)})

	rec, _ := c.Get("A")
	assert.Equal(t, models.StatusReady, rec.Status)
}

func TestStatusMonotoneOverArbitrarySequence(t *testing.T) {
	c := NewCollection(nil)
	c.Upsert(testRecord("A", models.StatusPending))

	lastRank := models.Rank(models.StatusPending)
	steps := []func(){
		func() { c.MergeSnapshot([]*models.OrderRecord{testRecord("A", models.StatusReady)}) },
		func() { c.Upsert(testRecord("A", models.StatusPending)) },
		func() { _ = c.SetStatus("A", models.StatusDelivered) },
		func() { c.MergeSnapshot([]*models.OrderRecord{testRecord("A", models.StatusPending)}) },
		func() { _ = c.SetStatus("A", models.StatusReady) },
	}
	for _, step := range steps {
		step()
		rec, _ := c.Get("A")
		assert.GreaterOrEqual(t, models.Rank(rec.Status), lastRank)
		lastRank = models.Rank(rec.Status)
	}
}

func TestMergeCommutative(t *testing.T) {
	snapshot := testRecord("A", models.StatusReady)
	push := testRecord("A", models.StatusPending)

	first := NewCollection(nil)
	first.MergeSnapshot([]*models.OrderRecord{snapshot.Clone()})
	first.Upsert(push.Clone())

	second := NewCollection(nil)
	second.Upsert(push.Clone())
	second.MergeSnapshot([]*models.OrderRecord{snapshot.Clone()})

	a, _ := first.Get("A")
	b, _ := second.Get("A")
	assert.Equal(t, a.Status, b.Status)
	assert.Equal(t, a.Items, b.Items)
	assert.Equal(t, a.Customer, b.Customer)
	assert.True(t, a.Total.Equal(b.Total))
	assert.Equal(t, a.CreatedAt, b.CreatedAt)
}

func TestMergeSnapshotIsNotDestructive(t *testing.T) {
	c := NewCollection(nil)
	c.Upsert(testRecord("B", models.StatusPending))

	// The snapshot was taken before B arrived; merging it must not drop B.
	c.MergeSnapshot([]*models.OrderRecord{testRecord("A", models.StatusPending)})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("B")
	assert.True(t, ok)
}

func TestMergeFillsMissingImmutableFields(t *testing.T) {
	c := NewCollection(nil)

	// A minimal push record first, then a richer snapshot row for the same id.
	sparse := &models.OrderRecord{ID: "A", Status: models.StatusPending,
		Items:    []models.Item{{Name: "Suya", Quantity: 1}},
		Customer: models.Customer{Name: "Chidi"}}
	c.Upsert(sparse)
	c.MergeSnapshot([]*models.OrderRecord{testRecord("A", models.StatusPending)})

	rec, _ := c.Get("A")
	assert.Equal(t, "venue-1", rec.VenueID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.True(t, rec.Total.Equal(decimal.NewFromInt(2000)))

	// Fields the first source already set are not overwritten by the later one.
	assert.Equal(t, "Chidi", rec.Customer.Name)
	assert.Len(t, rec.Items, 1)
}

func TestRevisionIncrementsOnlyOnChange(t *testing.T) {
	c := NewCollection(nil)
	c.Upsert(testRecord("A", models.StatusPending))

	// Re-merging an identical record should leave the revision alone.
	res := c.Upsert(testRecord("A", models.StatusPending))
	assert.False(t, res.Created)
	assert.False(t, res.Changed)

	rec, _ := c.Get("A")
	assert.Equal(t, int64(1), rec.Revision)

	require.NoError(t, c.SetStatus("A", models.StatusReady))
	rec, _ = c.Get("A")
	assert.Equal(t, int64(2), rec.Revision)
}

func TestSetStatusRejectsBackwardMove(t *testing.T) {
	c := NewCollection(nil)
	c.Upsert(testRecord("A", models.StatusReady))

	err := c.SetStatus("A", models.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	err = c.SetStatus("missing", models.StatusReady)
	assert.ErrorIs(t, err, ErrUnknownOrder)
}

func TestRollbackStatus(t *testing.T) {
	c := NewCollection(nil)
	c.Upsert(testRecord("A", models.StatusPending))
	require.NoError(t, c.SetStatus("A", models.StatusReady))

	assert.True(t, c.RollbackStatus("A", models.StatusReady, models.StatusPending))
	rec, _ := c.Get("A")
	assert.Equal(t, models.StatusPending, rec.Status)

	// A rollback predicated on a status the record no longer holds is a no-op.
	require.NoError(t, c.SetStatus("A", models.StatusDelivered))
	assert.False(t, c.RollbackStatus("A", models.StatusReady, models.StatusPending))
	rec, _ = c.Get("A")
	assert.Equal(t, models.StatusDelivered, rec.Status)
}

func TestPresentationOrder(t *testing.T) {
	c := NewCollection(nil)

	// Snapshot order is preserved as the service returned it.
	c.MergeSnapshot([]*models.OrderRecord{
		testRecord("S1", models.StatusPending),
		testRecord("S2", models.StatusPending),
	})
	// Push arrivals surface ahead of everything already known.
	c.Upsert(testRecord("P1", models.StatusPending))
	c.Upsert(testRecord("P2", models.StatusPending))

	var ids []string
	for _, rec := range c.ByStatus(models.StatusPending) {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"P2", "P1", "S1", "S2"}, ids)
}

func TestCounts(t *testing.T) {
	c := NewCollection(nil)
	c.Upsert(testRecord("A", models.StatusPending))
	c.Upsert(testRecord("B", models.StatusPending))
	c.Upsert(testRecord("C", models.StatusReady))

	counts := c.Counts()
	assert.Equal(t, 2, counts[models.StatusPending])
	assert.Equal(t, 1, counts[models.StatusReady])
	assert.Equal(t, 0, counts[models.StatusDelivered])
}
