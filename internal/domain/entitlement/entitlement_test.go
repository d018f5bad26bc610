package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/bilim-app/bilim/internal/domain/entitlement/valueobjects"
)

func freeEntitlement(t *testing.T) *Entitlement {
	t.Helper()
	e, err := NewFreeEntitlement(7)
	require.NoError(t, err)
	return e
}

func TestNewFreeEntitlement(t *testing.T) {
	e := freeEntitlement(t)

	assert.Equal(t, uint(7), e.UserID())
	assert.Equal(t, vo.PlanFree, e.Plan())
	assert.Equal(t, vo.SourceNone, e.Source())
	assert.Equal(t, vo.PaymentStatusNone, e.PaymentStatus())
	assert.Nil(t, e.ExpiryDate())
	assert.False(t, e.IsActive())
	assert.False(t, e.IsLapsed(), "free plan never lapses")
}

func TestNewFreeEntitlement_ZeroUserID(t *testing.T) {
	e, err := NewFreeEntitlement(0)
	assert.Error(t, err)
	assert.Nil(t, e)
}

func TestEntitlement_Activate(t *testing.T) {
	t.Run("payment activation", func(t *testing.T) {
		e := freeEntitlement(t)
		expiry := time.Now().UTC().Add(30 * 24 * time.Hour)

		err := e.Activate(vo.PlanStarter, vo.SourcePayment, expiry, time.Time{}, 30, 4990000)
		require.NoError(t, err)

		assert.Equal(t, vo.PlanStarter, e.Plan())
		assert.Equal(t, vo.SourcePayment, e.Source())
		require.NotNil(t, e.ExpiryDate())
		assert.Equal(t, expiry, *e.ExpiryDate())
		require.NotNil(t, e.ActivatedAt())
		assert.Equal(t, 30, e.DurationDays())
		assert.Equal(t, int64(4990000), e.LastPaymentAmount())
		assert.Equal(t, vo.PaymentStatusActive, e.PaymentStatus())
		assert.True(t, e.IsActive())
		assert.False(t, e.IsLapsed())
		assert.Equal(t, 1, e.Version())
	})

	t.Run("explicit activation time wins over the clock", func(t *testing.T) {
		e := freeEntitlement(t)
		paidAt := time.Now().UTC().Add(-5 * 24 * time.Hour)

		require.NoError(t, e.Activate(vo.PlanStarter, vo.SourcePayment,
			paidAt.Add(30*24*time.Hour), paidAt, 30, 4990000))

		require.NotNil(t, e.ActivatedAt())
		assert.True(t, e.ActivatedAt().Equal(paidAt))

		// A later re-activation with a new window keeps following the
		// supplied time, not the first stamp.
		laterPaid := paidAt.Add(10 * 24 * time.Hour)
		require.NoError(t, e.Activate(vo.PlanStarter, vo.SourcePayment,
			laterPaid.Add(30*24*time.Hour), laterPaid, 30, 4990000))
		assert.True(t, e.ActivatedAt().Equal(laterPaid))
	})

	t.Run("re-activation keeps first activation time", func(t *testing.T) {
		e := freeEntitlement(t)
		require.NoError(t, e.Activate(vo.PlanStarter, vo.SourcePayment, time.Now().UTC().Add(24*time.Hour), time.Time{}, 30, 100))
		first := *e.ActivatedAt()

		require.NoError(t, e.Activate(vo.PlanPro, vo.SourcePayment, time.Now().UTC().Add(90*24*time.Hour), time.Time{}, 90, 200))
		assert.Equal(t, first, *e.ActivatedAt())
		assert.Equal(t, vo.PlanPro, e.Plan())
		assert.Equal(t, 2, e.Version())
	})

	t.Run("rejects free plan", func(t *testing.T) {
		e := freeEntitlement(t)
		err := e.Activate(vo.PlanFree, vo.SourcePayment, time.Now().UTC().Add(time.Hour), time.Time{}, 30, 100)
		assert.Error(t, err)
	})

	t.Run("rejects none source", func(t *testing.T) {
		e := freeEntitlement(t)
		err := e.Activate(vo.PlanStarter, vo.SourceNone, time.Now().UTC().Add(time.Hour), time.Time{}, 30, 100)
		assert.Error(t, err)
	})

	t.Run("rejects zero expiry", func(t *testing.T) {
		e := freeEntitlement(t)
		err := e.Activate(vo.PlanStarter, vo.SourcePayment, time.Time{}, time.Time{}, 30, 100)
		assert.Error(t, err)
	})
}

func TestEntitlement_Downgrade(t *testing.T) {
	t.Run("lapsed paid plan downgrades and keeps expiry for display", func(t *testing.T) {
		e := freeEntitlement(t)
		expiry := time.Now().UTC().Add(-time.Hour)
		require.NoError(t, e.Activate(vo.PlanStarter, vo.SourcePayment, expiry, time.Time{}, 30, 100))
		require.True(t, e.IsLapsed())

		e.Downgrade()

		assert.Equal(t, vo.PlanFree, e.Plan())
		assert.Equal(t, vo.SourceNone, e.Source())
		assert.Equal(t, vo.PaymentStatusExpired, e.PaymentStatus())
		require.NotNil(t, e.ExpiryDate())
		assert.Equal(t, expiry, *e.ExpiryDate())
		assert.False(t, e.IsActive())
	})

	t.Run("no-op on free plan", func(t *testing.T) {
		e := freeEntitlement(t)
		e.Downgrade()
		assert.Equal(t, vo.PlanFree, e.Plan())
		assert.Equal(t, vo.PaymentStatusNone, e.PaymentStatus())
		assert.Equal(t, 0, e.Version())
	})
}

func TestEntitlement_IsLapsed(t *testing.T) {
	t.Run("paid plan without expiry counts as lapsed", func(t *testing.T) {
		e := ReconstructEntitlement(EntitlementReconstructParams{
			ID:            1,
			UserID:        7,
			Plan:          vo.PlanStarter,
			Source:        vo.SourcePayment,
			PaymentStatus: vo.PaymentStatusActive,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		})
		assert.True(t, e.IsLapsed())
		assert.False(t, e.IsActive())
	})

	t.Run("paid plan with future expiry is not lapsed", func(t *testing.T) {
		expiry := time.Now().UTC().Add(time.Hour)
		e := ReconstructEntitlement(EntitlementReconstructParams{
			ID:            1,
			UserID:        7,
			Plan:          vo.PlanPro,
			Source:        vo.SourcePayment,
			ExpiryDate:    &expiry,
			PaymentStatus: vo.PaymentStatusActive,
			CreatedAt:     time.Now().UTC(),
			UpdatedAt:     time.Now().UTC(),
		})
		assert.False(t, e.IsLapsed())
		assert.True(t, e.IsActive())
	})
}

func TestReconstructEntitlement(t *testing.T) {
	now := time.Now().UTC()
	expiry := now.Add(10 * 24 * time.Hour)
	activated := now.Add(-20 * 24 * time.Hour)

	e := ReconstructEntitlement(EntitlementReconstructParams{
		ID:                3,
		UserID:            11,
		Plan:              vo.PlanPro,
		Source:            vo.SourceManual,
		ExpiryDate:        &expiry,
		ActivatedAt:       &activated,
		DurationDays:      90,
		LastPaymentAmount: 12900000,
		PaymentStatus:     vo.PaymentStatusActive,
		Version:           4,
		CreatedAt:         activated,
		UpdatedAt:         now,
	})

	assert.Equal(t, uint(3), e.ID())
	assert.Equal(t, uint(11), e.UserID())
	assert.Equal(t, vo.PlanPro, e.Plan())
	assert.Equal(t, vo.SourceManual, e.Source())
	assert.Equal(t, expiry, *e.ExpiryDate())
	assert.Equal(t, 90, e.DurationDays())
	assert.Equal(t, int64(12900000), e.LastPaymentAmount())
	assert.Equal(t, 4, e.Version())
}
