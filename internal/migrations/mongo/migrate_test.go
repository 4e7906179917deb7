package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestCollections_CoverRepositories(t *testing.T) {
	defs := Collections()

	for _, name := range []string{
		"Bookings",
		"Sessions",
		"Service_codes",
		"Refund_intents",
		"Wallets",
		"Wallet_ledger",
		"Booking_locks",
		"Services",
		"Settings",
	} {
		_, ok := defs[name]
		assert.True(t, ok, "missing collection %s", name)
	}
}

func TestUniqueIndexes(t *testing.T) {
	tests := []struct {
		name    string
		indexes func() bool
	}{
		{"one START and one END code per session", func() bool { return unique(ServiceCodesIndexes, "session_id", "type") }},
		{"one refund intent per session", func() bool { return unique(RefundIntentsIndexes, "session_id") }},
		{"one wallet per sitter", func() bool { return unique(WalletsIndexes, "sitter_id") }},
		{"one earning per session", func() bool { return unique(WalletLedgerIndexes, "session_id") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.indexes())
		})
	}
}

func TestLedgerUniquenessOnlyCoversEarnings(t *testing.T) {
	opts := WalletLedgerIndexes[0].Options
	require.NotNil(t, opts)
	assert.Equal(t, bson.M{"type": "earning"}, opts.PartialFilterExpression)
}

func TestBookingLocksExpire(t *testing.T) {
	opts := BookingLocksIndexes[0].Options
	require.NotNil(t, opts)
	require.NotNil(t, opts.ExpireAfterSeconds)
	assert.Equal(t, int32(0), *opts.ExpireAfterSeconds)
}

func unique(indexes []mongo.IndexModel, keys ...string) bool {
	for _, idx := range indexes {
		d, ok := idx.Keys.(bson.D)
		if !ok || len(d) != len(keys) || idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
			continue
		}
		match := true
		for i, k := range keys {
			if d[i].Key != k {
				match = false
			}
		}
		if match {
			return true
		}
	}
	return false
}
