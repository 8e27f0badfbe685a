package testutil

// AnalyticsMigrations returns the analytics store schema for tests.
// Kept in sync with migrations/analytics/000001_init.up.sql.
func AnalyticsMigrations() []string {
	return []string{
		// Project policy
		`CREATE TABLE IF NOT EXISTS projects (
			organization_id VARCHAR(100) NOT NULL,
			project_id VARCHAR(100) NOT NULL,
			name VARCHAR(255) NOT NULL,
			order_frequency_months INT NOT NULL DEFAULT 3,
			delivery_delay_months DECIMAL(5,2) NOT NULL DEFAULT 2.0,
			buffer_stock_months DECIMAL(5,2) NOT NULL DEFAULT 1.0,
			last_order_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (organization_id, project_id)
		)`,

		// Stock batches
		`CREATE TABLE IF NOT EXISTS stock_batches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id VARCHAR(100) NOT NULL,
			project_id VARCHAR(100) NOT NULL,
			medication_id UUID NOT NULL,
			batch_number VARCHAR(100) NOT NULL,
			quantity_ordered INT NOT NULL DEFAULT 0,
			quantity_delivered INT NOT NULL DEFAULT 0,
			unit_price DECIMAL(10,2),
			supplier VARCHAR(255),
			delivery_date DATE NOT NULL,
			expiry_date DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT stock_batches_batch_number_key
				UNIQUE (organization_id, project_id, medication_id, batch_number),
			CONSTRAINT stock_batches_quantity_non_negative
				CHECK (quantity_ordered >= 0 AND quantity_delivered >= 0)
		)`,

		// Weekly consumption records
		`CREATE TABLE IF NOT EXISTS consumption_records (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id VARCHAR(100) NOT NULL,
			project_id VARCHAR(100) NOT NULL,
			medication_id UUID NOT NULL,
			week_number INT NOT NULL,
			year INT NOT NULL,
			quantity_consumed INT NOT NULL DEFAULT 0,
			is_week_closed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT consumption_records_week_key
				UNIQUE (organization_id, project_id, medication_id, week_number, year),
			CONSTRAINT consumption_records_week_number_range
				CHECK (week_number BETWEEN 1 AND 53),
			CONSTRAINT consumption_records_quantity_non_negative
				CHECK (quantity_consumed >= 0)
		)`,

		// Monthly physical counts
		`CREATE TABLE IF NOT EXISTS physical_counts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id VARCHAR(100) NOT NULL,
			project_id VARCHAR(100) NOT NULL,
			medication_id UUID NOT NULL,
			month INT NOT NULL,
			year INT NOT NULL,
			theoretical_stock INT NOT NULL DEFAULT 0,
			physical_stock INT NOT NULL DEFAULT 0,
			batch_id UUID REFERENCES stock_batches(id),
			expiry_date DATE,
			counted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT physical_counts_month_key
				UNIQUE (organization_id, project_id, medication_id, month, year),
			CONSTRAINT physical_counts_month_range
				CHECK (month BETWEEN 1 AND 12)
		)`,

		// Stockout periods
		`CREATE TABLE IF NOT EXISTS stockout_periods (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id VARCHAR(100) NOT NULL,
			project_id VARCHAR(100) NOT NULL,
			medication_id UUID NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE,
			days_duration INT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS stockout_periods_open_key
			ON stockout_periods (organization_id, project_id, medication_id)
			WHERE end_date IS NULL`,

		// Dispensations
		`CREATE TABLE IF NOT EXISTS dispensations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id VARCHAR(100) NOT NULL,
			project_id VARCHAR(100) NOT NULL,
			medication_id UUID NOT NULL,
			quantity INT NOT NULL DEFAULT 0,
			is_antibiotic BOOLEAN NOT NULL DEFAULT FALSE,
			is_antimalarial BOOLEAN NOT NULL DEFAULT FALSE,
			service VARCHAR(100),
			dispensed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT dispensations_quantity_non_negative
				CHECK (quantity >= 0)
		)`,
		`CREATE INDEX IF NOT EXISTS dispensations_scope_med_idx
			ON dispensations (organization_id, project_id, medication_id, dispensed_at)`,

		// Alerts
		`CREATE TABLE IF NOT EXISTS alerts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id VARCHAR(100) NOT NULL,
			project_id VARCHAR(100) NOT NULL,
			alert_type VARCHAR(50) NOT NULL,
			severity VARCHAR(20) NOT NULL,
			medication_id UUID,
			batch_id UUID,
			message TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ,
			resolved_by VARCHAR(100)
		)`,
		`CREATE INDEX IF NOT EXISTS alerts_scope_active_idx
			ON alerts (organization_id, project_id, is_active)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS alerts_active_condition_key
			ON alerts (organization_id, project_id, alert_type, (COALESCE(medication_id, '00000000-0000-0000-0000-000000000000'::uuid)))
			WHERE is_active`,
	}
}
