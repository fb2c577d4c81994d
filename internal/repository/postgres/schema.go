package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS community_members (
		id             TEXT PRIMARY KEY,
		student_number TEXT NOT NULL,
		full_name      TEXT NOT NULL DEFAULT '',
		department     TEXT NOT NULL DEFAULT '',
		email          TEXT NOT NULL DEFAULT '',
		source         TEXT NOT NULL DEFAULT 'ROSTER',
		imported_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT community_members_student_number_key UNIQUE (student_number)
	)`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id             TEXT PRIMARY KEY,
		email          TEXT NOT NULL,
		national_id    TEXT,
		student_number TEXT,
		full_name      TEXT NOT NULL DEFAULT '',
		role           TEXT NOT NULL DEFAULT 'MEMBER',
		password_hash  TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_key ON accounts (LOWER(email))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_national_id_key ON accounts (national_id) WHERE national_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS accounts_student_number_key ON accounts (student_number) WHERE student_number IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS applications (
		id                   TEXT PRIMARY KEY,
		first_name           VARCHAR(100) NOT NULL,
		last_name            VARCHAR(100) NOT NULL,
		email                TEXT NOT NULL,
		national_id          TEXT CHECK (national_id ~ '^[1-9][0-9]{10}$'),
		student_number       TEXT CHECK (student_number <> ''),
		phone                TEXT CHECK (phone ~ '^[0-9]{10,11}$'),
		department           TEXT,
		roster_check_status  TEXT NOT NULL DEFAULT 'NOT_CHECKED'
			CHECK (roster_check_status IN ('NOT_CHECKED', 'FOUND', 'NOT_FOUND', 'ERROR')),
		roster_checked_at    TIMESTAMPTZ,
		matched_member_ref   TEXT,
		status               TEXT NOT NULL DEFAULT 'PENDING'
			CHECK (status IN ('PENDING', 'APPROVED', 'REJECTED')),
		auto_approved        BOOLEAN NOT NULL DEFAULT FALSE,
		auto_approval_reason VARCHAR(200) NOT NULL DEFAULT '',
		rejection_reason     VARCHAR(500) NOT NULL DEFAULT '',
		rejected_at          TIMESTAMPTZ,
		approval_date        TIMESTAMPTZ,
		reviewer_ref         TEXT,
		created_account_ref  TEXT,
		account_created_at   TIMESTAMPTZ,
		source               TEXT NOT NULL DEFAULT 'WEBSITE' CHECK (source IN ('WEBSITE', 'ADMIN')),
		submitted_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		ip_address           TEXT NOT NULL DEFAULT '',
		user_agent           TEXT NOT NULL DEFAULT '',
		processing_notes     VARCHAR(1000) NOT NULL DEFAULT '',
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT applications_identification_present CHECK (national_id IS NOT NULL OR student_number IS NOT NULL)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS applications_email_key ON applications (LOWER(email))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS applications_national_id_key ON applications (national_id) WHERE national_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS applications_student_number_key ON applications (student_number) WHERE student_number IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS applications_identification_idx ON applications (national_id, student_number)`,
	`CREATE INDEX IF NOT EXISTS applications_status_idx ON applications (status, submitted_at DESC)`,
}
