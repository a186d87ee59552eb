package domain

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dayoonc/finbook/internal/date"
)

func TestNormalizeToken(t *testing.T) {
	require.Equal(t, "hanabankmain", NormalizeToken("Hana Bank (Main)"))
	require.Equal(t, "hanabankmain", NormalizeToken("hana-bank main"))
	require.Equal(t, "", NormalizeToken(" ---  "))
}

func TestAccountRefIDWinsOverName(t *testing.T) {
	id := int64(7)
	require.Equal(t, "id:7", AccountRef(&id, "Hana Bank"))
	require.Equal(t, "name:hanabank", AccountRef(nil, "Hana Bank"))
	require.Equal(t, "", AccountRef(nil, ""))
}

func TestTransferLike(t *testing.T) {
	require.True(t, (&Candidate{Kind: TxnTransfer}).TransferLike())
	require.True(t, (&Candidate{Kind: TxnExpense, Flow: FlowOut}).TransferLike())
	require.True(t, (&Candidate{Kind: TxnIncome, Flow: FlowIn}).TransferLike())
	require.False(t, (&Candidate{Kind: TxnExpense}).TransferLike())
}

func TestBucketKey(t *testing.T) {
	nine := date.TimeOfDay(9 * 3600)
	a := &Candidate{Date: date.MustParse("2025-06-02"), TimeOfDay: &nine, Currency: "krw"}
	b := &Candidate{Date: date.MustParse("2025-06-02"), TimeOfDay: &nine, Currency: "KRW"}
	require.Equal(t, a.BucketKey(), b.BucketKey())

	noTime := &Candidate{Date: date.MustParse("2025-06-02"), Currency: "KRW"}
	require.NotEqual(t, a.BucketKey(), noTime.BucketKey())

	otherDay := &Candidate{Date: date.MustParse("2025-06-03"), TimeOfDay: &nine, Currency: "KRW"}
	require.NotEqual(t, a.BucketKey(), otherDay.BucketKey())
}

func TestNormalizeCurrency(t *testing.T) {
	require.Equal(t, "KRW", NormalizeCurrency("krw"))
	require.Equal(t, "USD", NormalizeCurrency("UsD"))
}
