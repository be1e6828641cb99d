// Package registry looks up device registration records by IMEI in the
// device registration database.
package registry

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shipment-enricher/internal/common/errors"
	"shipment-enricher/internal/common/logging"
)

// lookupTimeout bounds a single registry query
const lookupTimeout = 5 * time.Second

// Registration is the device record held in the registration database.
// Any field may be empty; the pipeline writes only the fields present.
type Registration struct {
	RegistrationCode string
	SIMSerialNumber  string
	SIMICCID         string
}

// rowQuerier is the slice of pgxpool.Pool the client uses
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Client queries the device registration database
type Client struct {
	db     rowQuerier
	logger logging.Logger
}

// NewClient creates a registry client over an established connection pool
func NewClient(pool *pgxpool.Pool, logger logging.Logger) *Client {
	return newClient(pool, logger)
}

func newClient(db rowQuerier, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Client{db: db, logger: logger}
}

// Connect opens a connection pool against the registration database and
// verifies it with a ping
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.ConnectionError("failed to create registration database pool", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, errors.ConnectionError("failed to reach registration database", err)
	}

	return pool, nil
}

// Disabled is the lookup used when no registration database is configured.
// Every lookup is a miss, so orders still get their imei attribute.
type Disabled struct{}

// LookupBySerial always reports a miss
func (Disabled) LookupBySerial(ctx context.Context, imei string) (*Registration, error) {
	return nil, nil
}

// LookupBySerial finds the registration record for imei. A missing record
// is not an error; it returns (nil, nil) so callers can distinguish absence
// from an unreachable database.
func (c *Client) LookupBySerial(ctx context.Context, imei string) (*Registration, error) {
	if imei == "" {
		return nil, errors.ValidationError("imei is required for registry lookup")
	}

	queryCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	var code, simSerial, simICCID *string
	err := c.db.QueryRow(queryCtx,
		`SELECT registration_code, sim_serial_number, sim_iccid
		 FROM watchdata
		 WHERE imei = $1`,
		imei,
	).Scan(&code, &simSerial, &simICCID)

	if err == pgx.ErrNoRows {
		c.logger.Info("No registration record for device",
			logging.Field{Key: "imei", Value: imei},
		)
		return nil, nil
	}
	if err != nil {
		return nil, errors.ConnectionError("registry lookup failed", err).
			WithContext("imei", imei)
	}

	reg := &Registration{}
	if code != nil {
		reg.RegistrationCode = *code
	}
	if simSerial != nil {
		reg.SIMSerialNumber = *simSerial
	}
	if simICCID != nil {
		reg.SIMICCID = *simICCID
	}
	return reg, nil
}
