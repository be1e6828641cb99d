package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/registry"
	"shipment-enricher/internal/shipbob"
)

type fakeWriter struct {
	mu      sync.Mutex
	writes  map[string]string
	failKey map[string]error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{writes: map[string]string{}, failKey: map[string]error{}}
}

func (w *fakeWriter) WriteAttribute(ctx context.Context, orderRef, key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err, ok := w.failKey[key]; ok {
		return err
	}
	w.writes[key] = value
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

type fakeDevices struct {
	reg    *registry.Registration
	err    error
	gotSer string
}

func (d *fakeDevices) LookupBySerial(ctx context.Context, imei string) (*registry.Registration, error) {
	d.gotSer = imei
	return d.reg, d.err
}

type fakeCarrier struct {
	msisdn   string
	err      error
	gotICCID string
	calls    int
}

func (c *fakeCarrier) LookupByICCID(ctx context.Context, iccid string) (string, error) {
	c.calls++
	c.gotICCID = iccid
	return c.msisdn, c.err
}

func eventWithSerial(ref, serial string) *shipbob.Event {
	return &shipbob.Event{
		ReferenceID: ref,
		Shipments: []shipbob.Shipment{
			{Products: []shipbob.Product{
				{InventoryItems: []shipbob.InventoryItem{{SerialNumbers: []string{serial}}}},
			}},
		},
	}
}

func TestHandle_MissingOrderReference(t *testing.T) {
	writer := newFakeWriter()
	p := New(&fakeDevices{}, &fakeCarrier{}, writer, nil)

	_, err := p.Handle(context.Background(), &shipbob.Event{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Equal(t, 0, writer.count())
}

func TestHandle_NilEvent(t *testing.T) {
	p := New(&fakeDevices{}, &fakeCarrier{}, newFakeWriter(), nil)

	_, err := p.Handle(context.Background(), nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestHandle_NoSerialNumber(t *testing.T) {
	writer := newFakeWriter()
	p := New(&fakeDevices{}, &fakeCarrier{}, writer, nil)

	event := &shipbob.Event{
		ReferenceID: "ORD1",
		Shipments: []shipbob.Shipment{
			{Products: []shipbob.Product{{InventoryItems: []shipbob.InventoryItem{{}}}}},
		},
	}

	_, err := p.Handle(context.Background(), event)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
	assert.Equal(t, 0, writer.count())
}

func TestHandle_EssentialWriteFailure(t *testing.T) {
	writer := newFakeWriter()
	writer.failKey[AttrIMEI] = errors.ProviderError("metafield write returned status 502")

	devices := &fakeDevices{}
	p := New(devices, &fakeCarrier{}, writer, nil)

	_, err := p.Handle(context.Background(), eventWithSerial("ORD1", "IMEI123"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInternal))

	// Nothing beyond the essential write was attempted
	assert.Equal(t, 0, writer.count())
	assert.Empty(t, devices.gotSer)
}

func TestHandle_LookupMiss(t *testing.T) {
	writer := newFakeWriter()
	carrier := &fakeCarrier{}
	p := New(&fakeDevices{reg: nil}, carrier, writer, nil)

	result, err := p.Handle(context.Background(), eventWithSerial("ORD1", "IMEI123"))
	require.NoError(t, err)

	assert.Equal(t, "IMEI123", writer.writes[AttrIMEI])
	assert.Equal(t, 1, writer.count())
	assert.Equal(t, []string{AttrIMEI}, result.Written)
	assert.Equal(t, 0, carrier.calls)
}

func TestHandle_LookupUnavailable(t *testing.T) {
	writer := newFakeWriter()
	devices := &fakeDevices{err: errors.ConnectionError("registry lookup failed", nil)}
	p := New(devices, &fakeCarrier{}, writer, nil)

	result, err := p.Handle(context.Background(), eventWithSerial("ORD1", "IMEI123"))
	require.NoError(t, err)

	assert.Equal(t, 1, writer.count())
	assert.Equal(t, []string{AttrIMEI}, result.Written)
}

func TestHandle_FullEnrichment(t *testing.T) {
	writer := newFakeWriter()
	devices := &fakeDevices{reg: &registry.Registration{
		RegistrationCode: "REG9",
		SIMICCID:         "8901000000000000000",
	}}
	carrier := &fakeCarrier{msisdn: "+15551234567"}
	p := New(devices, carrier, writer, nil)

	result, err := p.Handle(context.Background(), eventWithSerial("ORD1", "IMEI123"))
	require.NoError(t, err)

	assert.Equal(t, "IMEI123", writer.writes[AttrIMEI])
	assert.Equal(t, "REG9", writer.writes[AttrRegistrationCode])
	assert.Equal(t, "8901000000000000000", writer.writes[AttrSIMICCID])
	assert.Equal(t, "+15551234567", writer.writes[AttrSIMPhoneNumber])

	// sim_serial_number was empty in the record, so it is never written
	_, wrote := writer.writes[AttrSIMSerialNumber]
	assert.False(t, wrote)

	assert.Equal(t, "8901000000000000000", carrier.gotICCID)
	assert.ElementsMatch(t,
		[]string{AttrIMEI, AttrRegistrationCode, AttrSIMICCID, AttrSIMPhoneNumber},
		result.Written)
	assert.Empty(t, result.Failed)
}

func TestHandle_BestEffortWriteFailureDoesNotAbort(t *testing.T) {
	writer := newFakeWriter()
	writer.failKey[AttrSIMICCID] = errors.TimeoutError("order attribute write")

	devices := &fakeDevices{reg: &registry.Registration{
		RegistrationCode: "REG9",
		SIMSerialNumber:  "SIM001",
		SIMICCID:         "8901000000000000000",
	}}
	carrier := &fakeCarrier{msisdn: "+15551234567"}
	p := New(devices, carrier, writer, nil)

	result, err := p.Handle(context.Background(), eventWithSerial("ORD1", "IMEI123"))
	require.NoError(t, err)

	// Sibling writes landed despite the failure
	assert.Equal(t, "REG9", writer.writes[AttrRegistrationCode])
	assert.Equal(t, "SIM001", writer.writes[AttrSIMSerialNumber])
	assert.Equal(t, "+15551234567", writer.writes[AttrSIMPhoneNumber])

	assert.Equal(t, []string{AttrSIMICCID}, result.Failed)

	// The carrier lookup still runs; it depends on the record, not on the
	// write outcomes
	assert.Equal(t, 1, carrier.calls)
}

func TestHandle_CarrierFailureAbsorbed(t *testing.T) {
	writer := newFakeWriter()
	devices := &fakeDevices{reg: &registry.Registration{SIMICCID: "8901"}}
	carrier := &fakeCarrier{err: errors.ProviderError("carrier API returned status 502")}
	p := New(devices, carrier, writer, nil)

	result, err := p.Handle(context.Background(), eventWithSerial("ORD1", "IMEI123"))
	require.NoError(t, err)

	_, wrote := writer.writes[AttrSIMPhoneNumber]
	assert.False(t, wrote)
	assert.ElementsMatch(t, []string{AttrIMEI, AttrSIMICCID}, result.Written)
}

func TestHandle_NoICCIDSkipsCarrier(t *testing.T) {
	writer := newFakeWriter()
	devices := &fakeDevices{reg: &registry.Registration{RegistrationCode: "REG9"}}
	carrier := &fakeCarrier{}
	p := New(devices, carrier, writer, nil)

	_, err := p.Handle(context.Background(), eventWithSerial("ORD1", "IMEI123"))
	require.NoError(t, err)

	assert.Equal(t, 0, carrier.calls)
}
