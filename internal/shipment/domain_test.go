package shipment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusGates(t *testing.T) {
	require.True(t, StatusInProcess.CanEdit())
	require.True(t, StatusInProcess.CanSend())
	require.True(t, StatusInProcess.CanReceive())
	require.False(t, StatusInProcess.CanConfirmReceived())
	require.False(t, StatusInProcess.CanCancelOutbound())
	require.False(t, StatusInProcess.CanCancelInbound())

	require.False(t, StatusSent.CanEdit())
	require.False(t, StatusSent.CanSend())
	require.True(t, StatusSent.CanConfirmReceived())
	require.True(t, StatusSent.CanCancelOutbound())

	require.False(t, StatusReceived.CanEdit())
	require.False(t, StatusReceived.CanReceive())
	require.True(t, StatusReceived.CanCancelInbound())

	require.False(t, StatusCanceled.CanEdit())
	require.False(t, StatusCanceled.CanSend())
	require.False(t, StatusCanceled.CanReceive())
	require.False(t, StatusCanceled.CanCancelOutbound())
	require.False(t, StatusCanceled.CanCancelInbound())
}

func TestStatusIsValid(t *testing.T) {
	for _, s := range []Status{StatusInProcess, StatusReceived, StatusSent, StatusCanceled} {
		require.True(t, s.IsValid(), s.String())
	}
	require.False(t, Status(42).IsValid())
	require.Equal(t, "UNKNOWN", Status(42).String())
}

func TestTrackingStatusGates(t *testing.T) {
	require.True(t, TrackPreparing.CanDelete())
	require.True(t, TrackPreparing.CanEditQuantity())

	for _, s := range []TrackingStatus{TrackInTransit, TrackArrived, TrackCanceled, TrackUnknown} {
		require.False(t, s.CanDelete(), s.String())
		require.False(t, s.CanEditQuantity(), s.String())
	}
}

func TestTrackingLineIsComplete(t *testing.T) {
	qty := 5.0
	require.False(t, TrackingLine{}.IsComplete())
	require.False(t, TrackingLine{QuantityReceived: &qty}.IsComplete())
	require.False(t, TrackingLine{DestBin: "A1"}.IsComplete())
	require.True(t, TrackingLine{QuantityReceived: &qty, DestBin: "A1"}.IsComplete())
}

func TestBinSelectionNormalize(t *testing.T) {
	require.Equal(t, "A1", BinSelection{Bin: "A1"}.Normalize())
	require.Equal(t, "B2", BinSelection{Bin: "A1", Override: "B2"}.Normalize())
	require.Equal(t, "", BinSelection{}.Normalize())
}

func TestOutboundActions(t *testing.T) {
	a := OutboundActions(StatusInProcess)
	require.True(t, a.CanEdit)
	require.True(t, a.CanSend)
	require.False(t, a.CanCancel)

	a = OutboundActions(StatusSent)
	require.False(t, a.CanEdit)
	require.True(t, a.CanConfirmReceived)
	require.True(t, a.CanCancel)
}

func TestInboundActions(t *testing.T) {
	a := InboundActions(StatusInProcess, 2)
	require.True(t, a.CanEdit)
	require.False(t, a.CanReceive)

	a = InboundActions(StatusInProcess, 0)
	require.True(t, a.CanReceive)

	a = InboundActions(StatusReceived, 0)
	require.False(t, a.CanReceive)
	require.True(t, a.CanCancel)
}
