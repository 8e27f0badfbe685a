package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	// Stock movement events (consumed)
	EventBatchReceived        = "stock.batch.received"
	EventConsumptionRecorded  = "stock.consumption.recorded"
	EventWeekClosed           = "stock.consumption.week_closed"
	EventCountRecorded        = "stock.count.recorded"
	EventDispensationRecorded = "stock.dispensation.recorded"

	// Analytics events (published)
	EventAlertCreated    = "analytics.alert.created"
	EventAlertResolved   = "analytics.alert.resolved"
	EventStockoutOpened  = "analytics.stockout.opened"
	EventStockoutClosed  = "analytics.stockout.closed"
)

// Exchange names
const (
	ExchangeStockEvents     = "stock.events"
	ExchangeAnalyticsEvents = "analytics.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Stock Events

// BatchReceivedEvent is published by the stock service when a batch is received
type BatchReceivedEvent struct {
	OrganizationID   string           `json:"organization_id"`
	ProjectID        string           `json:"project_id"`
	BatchID          string           `json:"batch_id" validate:"required,uuid"`
	MedicationID     string           `json:"medication_id" validate:"required,uuid"`
	BatchNumber      string           `json:"batch_number" validate:"required"`
	QuantityOrdered  int              `json:"quantity_ordered" validate:"gte=0"`
	QuantityReceived int              `json:"quantity_received" validate:"gte=0"`
	UnitPrice        *decimal.Decimal `json:"unit_price,omitempty"`
	Supplier         *string          `json:"supplier,omitempty"`
	ExpiryDate       time.Time        `json:"expiry_date" validate:"required"`
	ReceivedAt       time.Time        `json:"received_at" validate:"required"`
}

// ConsumptionRecordedEvent is published when a weekly consumption figure is recorded
type ConsumptionRecordedEvent struct {
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id"`
	RecordID       string `json:"record_id"`
	MedicationID   string `json:"medication_id" validate:"required,uuid"`
	WeekNumber     int    `json:"week_number" validate:"required,gte=1,lte=53"`
	Year           int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Quantity       int    `json:"quantity" validate:"gte=0"`
}

// WeekClosedEvent is published when a consumption week is closed
type WeekClosedEvent struct {
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id"`
	MedicationID   string `json:"medication_id" validate:"required,uuid"`
	WeekNumber     int    `json:"week_number" validate:"required,gte=1,lte=53"`
	Year           int    `json:"year" validate:"required,gte=2000,lte=2100"`
}

// CountRecordedEvent is published when a physical inventory count is recorded
type CountRecordedEvent struct {
	OrganizationID  string    `json:"organization_id"`
	ProjectID       string    `json:"project_id"`
	CountID         string    `json:"count_id" validate:"required,uuid"`
	MedicationID    string    `json:"medication_id" validate:"required,uuid"`
	Month           int       `json:"month" validate:"required,gte=1,lte=12"`
	Year            int       `json:"year" validate:"required,gte=2000,lte=2100"`
	QuantityCounted int       `json:"quantity_counted" validate:"gte=0"`
	CountedAt       time.Time `json:"counted_at" validate:"required"`
}

// DispensationRecordedEvent is published when a dispensation is recorded
type DispensationRecordedEvent struct {
	OrganizationID string    `json:"organization_id"`
	ProjectID      string    `json:"project_id"`
	DispensationID string    `json:"dispensation_id" validate:"required,uuid"`
	MedicationID   string    `json:"medication_id" validate:"required,uuid"`
	Quantity       int       `json:"quantity" validate:"gt=0"`
	IsAntibiotic   bool      `json:"is_antibiotic"`
	IsAntimalarial bool      `json:"is_antimalarial"`
	Service        *string   `json:"service,omitempty"`
	DispensedAt    time.Time `json:"dispensed_at" validate:"required"`
}

// Analytics Events

// AlertCreatedEvent is published when the alert engine raises a new alert
type AlertCreatedEvent struct {
	OrganizationID string `json:"organization_id"`
	ProjectID      string `json:"project_id"`
	AlertID        string `json:"alert_id"`
	AlertType      string `json:"alert_type"`
	Severity       string `json:"severity"`
	MedicationID   string `json:"medication_id,omitempty"`
	Message        string `json:"message"`
}

// AlertResolvedEvent is published when an alert is resolved, either by a
// user or automatically when its condition clears
type AlertResolvedEvent struct {
	OrganizationID string    `json:"organization_id"`
	ProjectID      string    `json:"project_id"`
	AlertID        string    `json:"alert_id"`
	AlertType      string    `json:"alert_type"`
	ResolvedBy     string    `json:"resolved_by,omitempty"`
	ResolvedAt     time.Time `json:"resolved_at"`
}

// StockoutOpenedEvent is published when a medication enters stockout
type StockoutOpenedEvent struct {
	OrganizationID string    `json:"organization_id"`
	ProjectID      string    `json:"project_id"`
	StockoutID     string    `json:"stockout_id"`
	MedicationID   string    `json:"medication_id"`
	StartDate      time.Time `json:"start_date"`
}

// StockoutClosedEvent is published when a stockout period ends
type StockoutClosedEvent struct {
	OrganizationID string    `json:"organization_id"`
	ProjectID      string    `json:"project_id"`
	StockoutID     string    `json:"stockout_id"`
	MedicationID   string    `json:"medication_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	DaysDuration   int       `json:"days_duration"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return fmt.Sprintf("%d-%d", time.Now().UnixNano(), time.Now().Nanosecond()%10000)
}
