// Package pipeline runs the order-shipped enrichment flow: extract the
// device serial from the webhook payload, write it to the order, then
// enrich the order with registration and SIM details on a best-effort
// basis.
package pipeline

import (
	"context"
	"sync"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/logging"
	"shipment-enricher/internal/registry"
	"shipment-enricher/internal/shipbob"
)

// Attribute keys written onto the order
const (
	AttrIMEI             = "imei"
	AttrRegistrationCode = "watch_registration_code"
	AttrSIMSerialNumber  = "sim_serial_number"
	AttrSIMICCID         = "sim_iccid"
	AttrSIMPhoneNumber   = "sim_phone_number"
)

// DeviceLookup finds the registration record for a device serial.
// Implemented by registry.Client.
type DeviceLookup interface {
	LookupBySerial(ctx context.Context, imei string) (*registry.Registration, error)
}

// CarrierLookup resolves a SIM identifier to its phone number.
// Implemented by jasper.Client.
type CarrierLookup interface {
	LookupByICCID(ctx context.Context, iccid string) (string, error)
}

// AttributeWriter sets one attribute on an order. Implemented by
// shopify.Client.
type AttributeWriter interface {
	WriteAttribute(ctx context.Context, orderRef, key, value string) error
}

// Result summarizes one enrichment run for the audit log
type Result struct {
	OrderRef string   `json:"order_ref"`
	Serial   string   `json:"serial"`
	Written  []string `json:"written"`
	Failed   []string `json:"failed,omitempty"`
}

// Pipeline orchestrates the enrichment steps for one webhook delivery.
// Deliveries are independent; a single Pipeline value serves all of them
// concurrently.
type Pipeline struct {
	devices DeviceLookup
	carrier CarrierLookup
	writer  AttributeWriter
	logger  logging.Logger
}

// New creates an enrichment pipeline
func New(devices DeviceLookup, carrier CarrierLookup, writer AttributeWriter, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Pipeline{
		devices: devices,
		carrier: carrier,
		writer:  writer,
		logger:  logger,
	}
}

// Handle processes one order_shipped event.
//
// The imei write is essential: its failure fails the whole delivery. Every
// write after it is best-effort; failures are logged and absorbed, and the
// delivery still succeeds once the essential write has landed. A device
// lookup miss, or an unreachable registration database, ends enrichment
// early without failing the delivery.
func (p *Pipeline) Handle(ctx context.Context, event *shipbob.Event) (*Result, error) {
	if event == nil || event.ReferenceID == "" {
		return nil, errors.ValidationError("event carries no order reference").
			WithCode("MissingOrderReference")
	}

	p.logger.Info("Webhook event received",
		logging.Field{Key: "order", Value: event.ReferenceID},
		logging.Field{Key: "shipments", Value: len(event.Shipments)},
	)

	serial := event.FirstSerial()
	if serial == "" {
		return nil, errors.ValidationError("no serial number found in payload").
			WithCode("NoSerialNumberFound").
			WithContext("order", event.ReferenceID)
	}

	p.logger.Info("Device serial extracted",
		logging.Field{Key: "order", Value: event.ReferenceID},
		logging.Field{Key: "serial", Value: serial},
	)

	result := &Result{OrderRef: event.ReferenceID, Serial: serial}

	// Essential write, everything after this is best-effort
	if err := p.writer.WriteAttribute(ctx, event.ReferenceID, AttrIMEI, serial); err != nil {
		p.logger.Error("Essential imei write failed", err,
			logging.Field{Key: "order", Value: event.ReferenceID},
		)
		return nil, errors.InternalError("failed to write imei attribute", err).
			WithCode("EnrichmentWriteFailed").
			WithContext("order", event.ReferenceID)
	}
	result.Written = append(result.Written, AttrIMEI)

	reg, err := p.devices.LookupBySerial(ctx, serial)
	if err != nil {
		// An unreachable registration database must not fail the order;
		// treat it as a miss and stop enriching
		p.logger.Warn("Device lookup unavailable, skipping enrichment",
			logging.Field{Key: "order", Value: event.ReferenceID},
			logging.Field{Key: "serial", Value: serial},
			logging.Field{Key: "error", Value: err.Error()},
		)
		p.finish(result)
		return result, nil
	}
	if reg == nil {
		p.logger.Info("No registration record, skipping enrichment",
			logging.Field{Key: "order", Value: event.ReferenceID},
			logging.Field{Key: "serial", Value: serial},
		)
		p.finish(result)
		return result, nil
	}

	p.writeBestEffort(ctx, result, map[string]string{
		AttrRegistrationCode: reg.RegistrationCode,
		AttrSIMSerialNumber:  reg.SIMSerialNumber,
		AttrSIMICCID:         reg.SIMICCID,
	})

	if reg.SIMICCID != "" {
		p.enrichPhoneNumber(ctx, result, reg.SIMICCID)
	}

	p.finish(result)
	return result, nil
}

// writeBestEffort fans the writes out concurrently and waits for all of
// them. Each outcome is logged on its own; no failure aborts a sibling.
func (p *Pipeline) writeBestEffort(ctx context.Context, result *Result, attrs map[string]string) {
	type outcome struct {
		key string
		err error
	}

	var wg sync.WaitGroup
	outcomes := make(chan outcome, len(attrs))

	for key, value := range attrs {
		if value == "" {
			continue
		}
		wg.Add(1)
		go func(key, value string) {
			defer wg.Done()
			outcomes <- outcome{key: key, err: p.writer.WriteAttribute(ctx, result.OrderRef, key, value)}
		}(key, value)
	}

	wg.Wait()
	close(outcomes)

	for o := range outcomes {
		if o.err != nil {
			p.logger.Warn("Best-effort attribute write failed",
				logging.Field{Key: "order", Value: result.OrderRef},
				logging.Field{Key: "key", Value: o.key},
				logging.Field{Key: "error_type", Value: string(errors.GetType(o.err))},
				logging.Field{Key: "error", Value: o.err.Error()},
			)
			result.Failed = append(result.Failed, o.key)
			continue
		}
		result.Written = append(result.Written, o.key)
	}
}

// enrichPhoneNumber runs the carrier lookup and, on success, writes the
// phone number. Both steps are strictly best-effort.
func (p *Pipeline) enrichPhoneNumber(ctx context.Context, result *Result, iccid string) {
	msisdn, err := p.carrier.LookupByICCID(ctx, iccid)
	if err != nil {
		p.logger.Warn("Carrier lookup failed, skipping phone number",
			logging.Field{Key: "order", Value: result.OrderRef},
			logging.Field{Key: "iccid", Value: iccid},
			logging.Field{Key: "error_type", Value: string(errors.GetType(err))},
			logging.Field{Key: "error", Value: err.Error()},
		)
		return
	}

	if err := p.writer.WriteAttribute(ctx, result.OrderRef, AttrSIMPhoneNumber, msisdn); err != nil {
		p.logger.Warn("Best-effort attribute write failed",
			logging.Field{Key: "order", Value: result.OrderRef},
			logging.Field{Key: "key", Value: AttrSIMPhoneNumber},
			logging.Field{Key: "error_type", Value: string(errors.GetType(err))},
			logging.Field{Key: "error", Value: err.Error()},
		)
		result.Failed = append(result.Failed, AttrSIMPhoneNumber)
		return
	}
	result.Written = append(result.Written, AttrSIMPhoneNumber)
}

func (p *Pipeline) finish(result *Result) {
	p.logger.Info("Enrichment complete",
		logging.Field{Key: "order", Value: result.OrderRef},
		logging.Field{Key: "serial", Value: result.Serial},
		logging.Field{Key: "written", Value: result.Written},
		logging.Field{Key: "failed", Value: result.Failed},
	)
}
