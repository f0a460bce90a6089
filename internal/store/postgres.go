package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // registers the "postgres" driver for database/sql
	"github.com/shopfabric/dispatch/pkg/carrier"
)

// Postgres implements the repository contracts over the platform database.
type Postgres struct {
	db *sql.DB
}

// PostgresConfig holds connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewPostgres opens and pings a connection to the platform database.
func NewPostgres(cfg PostgresConfig) (*Postgres, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Close releases the database connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// GetForDispatch loads the order row with its items and shipping sub-state.
func (p *Postgres) GetForDispatch(ctx context.Context, orderID string) (*Order, error) {
	query := `
		SELECT id, number, company_id, shop_id, customer_name, customer_email,
		       delivery_method, pickup_point_id, notes, total, currency, cod_requested,
		       ship_name, ship_phone, ship_email, ship_city, ship_street, ship_house,
		       ship_apartment, ship_floor, ship_entrance, ship_zip, ship_country,
		       shipping_provider, shipping_provider_id, shipping_tracking_number,
		       shipping_label_url, shipping_sent_at, shipping_status,
		       shipping_status_updated_at, shipping_data, shipping_error,
		       shipping_retry_count, shipping_last_retry_at
		FROM orders WHERE id = $1`

	var o Order
	var provider, providerID, tracking, labelURL, status, shipErr sql.NullString
	var sentAt, statusUpdatedAt, lastRetryAt sql.NullTime
	var data []byte
	var retryCount sql.NullInt64

	err := p.db.QueryRowContext(ctx, query, orderID).Scan(
		&o.ID, &o.Number, &o.CompanyID, &o.ShopID, &o.CustomerName, &o.CustomerEmail,
		&o.DeliveryMethod, &o.PickupPointID, &o.Notes, &o.Total, &o.Currency, &o.CODRequested,
		&o.Address.Name, &o.Address.Phone, &o.Address.Email, &o.Address.City,
		&o.Address.Street, &o.Address.House, &o.Address.Apartment, &o.Address.Floor,
		&o.Address.Entrance, &o.Address.Zip, &o.Address.Country,
		&provider, &providerID, &tracking, &labelURL, &sentAt, &status,
		&statusUpdatedAt, &data, &shipErr, &retryCount, &lastRetryAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", carrier.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading order %s: %w", orderID, err)
	}

	o.Shipping = ShippingState{
		Provider:       provider.String,
		IntegrationID:  providerID.String,
		TrackingNumber: tracking.String,
		LabelURL:       labelURL.String,
		Status:         status.String,
		Error:          shipErr.String,
		RetryCount:     int(retryCount.Int64),
	}
	if sentAt.Valid {
		o.Shipping.SentAt = &sentAt.Time
	}
	if statusUpdatedAt.Valid {
		o.Shipping.StatusUpdatedAt = &statusUpdatedAt.Time
	}
	if lastRetryAt.Valid {
		o.Shipping.LastRetryAt = &lastRetryAt.Time
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &o.Shipping.Data)
	}

	rows, err := p.db.QueryContext(ctx,
		`SELECT name, quantity FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("loading order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.Name, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	return &o, rows.Err()
}

// MarkShipped writes the success fields in a single conditional update so
// concurrent dispatches cannot both observe "not yet sent".
func (p *Postgres) MarkShipped(ctx context.Context, orderID string, res ShipmentResult, force bool) error {
	data, _ := json.Marshal(res.Data)

	query := `
		UPDATE orders SET
			shipping_provider = $2,
			shipping_provider_id = $3,
			shipping_tracking_number = $4,
			shipping_label_url = $5,
			shipping_sent_at = $6,
			shipping_status = 'sent',
			shipping_status_updated_at = $6,
			shipping_data = $7,
			shipping_error = NULL,
			shipping_retry_count = $8
		WHERE id = $1 AND (shipping_sent_at IS NULL OR $9)`

	result, err := p.db.ExecContext(ctx, query, orderID,
		res.Provider, res.IntegrationID, res.TrackingNumber, res.LabelURL,
		res.SentAt, data, res.RetryCount, force)
	if err != nil {
		return fmt.Errorf("marking order %s shipped: %w", orderID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: order %s", carrier.ErrAlreadySent, orderID)
	}
	return nil
}

// MarkFailed writes the failure fields together.
func (p *Postgres) MarkFailed(ctx context.Context, orderID string, res FailureResult) error {
	query := `
		UPDATE orders SET
			shipping_error = $2,
			shipping_status = 'failed',
			shipping_retry_count = $3,
			shipping_last_retry_at = $4
		WHERE id = $1`

	_, err := p.db.ExecContext(ctx, query, orderID, res.Error, res.RetryCount, res.At)
	if err != nil {
		return fmt.Errorf("marking order %s failed: %w", orderID, err)
	}
	return nil
}

// UpdateTracking advances the order's shipping status.
func (p *Postgres) UpdateTracking(ctx context.Context, orderID, status string, at time.Time) error {
	query := `
		UPDATE orders SET shipping_status = $2, shipping_status_updated_at = $3
		WHERE id = $1`
	_, err := p.db.ExecContext(ctx, query, orderID, status, at)
	if err != nil {
		return fmt.Errorf("updating tracking for order %s: %w", orderID, err)
	}
	return nil
}

// ActiveShipping lists all active shipping integrations for a company.
func (p *Postgres) ActiveShipping(ctx context.Context, companyID string) ([]Integration, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, company_id, type, provider, active, config
		FROM integrations
		WHERE company_id = $1 AND type = 'shipping' AND active
		ORDER BY created_at`, companyID)
	if err != nil {
		return nil, fmt.Errorf("loading integrations: %w", err)
	}
	defer rows.Close()

	var result []Integration
	for rows.Next() {
		var in Integration
		if err := rows.Scan(&in.ID, &in.CompanyID, &in.Type, &in.Provider, &in.Active, &in.Config); err != nil {
			return nil, fmt.Errorf("scanning integration: %w", err)
		}
		result = append(result, in)
	}
	return result, rows.Err()
}

// ActiveShippingByProvider finds the active integration of one carrier.
func (p *Postgres) ActiveShippingByProvider(ctx context.Context, companyID, provider string) (*Integration, error) {
	var in Integration
	err := p.db.QueryRowContext(ctx, `
		SELECT id, company_id, type, provider, active, config
		FROM integrations
		WHERE company_id = $1 AND type = 'shipping' AND provider = $2 AND active
		ORDER BY created_at LIMIT 1`, companyID, provider).
		Scan(&in.ID, &in.CompanyID, &in.Type, &in.Provider, &in.Active, &in.Config)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", carrier.ErrIntegrationNotFound, companyID, provider)
	}
	if err != nil {
		return nil, fmt.Errorf("loading integration: %w", err)
	}
	return &in, nil
}

// Append inserts one shipping log row.
func (p *Postgres) Append(ctx context.Context, log *ShippingLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO shipping_logs (
			id, order_id, provider, action, status, request, response,
			error, duration_ms, attempt, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		log.ID, log.OrderID, log.Provider, log.Action, log.Status,
		log.Request, log.Response, log.Error, log.Duration.Milliseconds(),
		log.Attempt, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("appending shipping log: %w", err)
	}
	return nil
}

// ListByOrder returns the dispatch log rows for one order, oldest first.
func (p *Postgres) ListByOrder(ctx context.Context, orderID string) ([]ShippingLog, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, order_id, provider, action, status, request, response,
		       error, duration_ms, attempt, created_at
		FROM shipping_logs WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing shipping logs: %w", err)
	}
	defer rows.Close()

	var result []ShippingLog
	for rows.Next() {
		var l ShippingLog
		var durationMS int64
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Provider, &l.Action, &l.Status,
			&l.Request, &l.Response, &l.Error, &durationMS, &l.Attempt, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning shipping log: %w", err)
		}
		l.Duration = time.Duration(durationMS) * time.Millisecond
		result = append(result, l)
	}
	return result, rows.Err()
}

var (
	_ OrderRepository       = (*Postgres)(nil)
	_ IntegrationRepository = (*Postgres)(nil)
	_ ShippingLogRepository = (*Postgres)(nil)
)
