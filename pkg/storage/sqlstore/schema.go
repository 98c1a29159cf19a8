package sqlstore

const schema = `
CREATE TABLE IF NOT EXISTS features (
	product TEXT NOT NULL,
	quarter TEXT NOT NULL,
	feature_name TEXT NOT NULL,
	feature_description TEXT NOT NULL DEFAULT '',
	votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
	status TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_features_product ON features(product);

CREATE TABLE IF NOT EXISTS responsiveness_trends (
	product TEXT NOT NULL,
	quarter TEXT NOT NULL,
	total_ideas INTEGER NOT NULL DEFAULT 0 CHECK (total_ideas >= 0),
	ideas_moved_out_of_review INTEGER NOT NULL DEFAULT 0 CHECK (ideas_moved_out_of_review >= 0),
	ideas_no_action INTEGER NOT NULL DEFAULT 0 CHECK (ideas_no_action >= 0),
	percentage DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (percentage >= 0 AND percentage <= 100)
);
CREATE INDEX IF NOT EXISTS idx_responsiveness_product ON responsiveness_trends(product);

CREATE TABLE IF NOT EXISTS commitment_trends (
	product TEXT NOT NULL,
	year INTEGER NOT NULL,
	quarter TEXT NOT NULL,
	committed INTEGER NOT NULL DEFAULT 0 CHECK (committed >= 0),
	delivered INTEGER NOT NULL DEFAULT 0 CHECK (delivered >= 0)
);
CREATE INDEX IF NOT EXISTS idx_commitment_product ON commitment_trends(product);

CREATE TABLE IF NOT EXISTS continued_engagement (
	product TEXT NOT NULL,
	quarter TEXT NOT NULL,
	total_ideas INTEGER NOT NULL DEFAULT 0 CHECK (total_ideas >= 0),
	ideas_with_subsequent_action INTEGER NOT NULL DEFAULT 0 CHECK (ideas_with_subsequent_action >= 0),
	engagement_rate DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (engagement_rate >= 0 AND engagement_rate <= 100),
	idea_ids TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_engagement_product ON continued_engagement(product);

CREATE TABLE IF NOT EXISTS client_submissions (
	product TEXT NOT NULL,
	quarter TEXT NOT NULL,
	client_name TEXT NOT NULL,
	submissions INTEGER NOT NULL DEFAULT 0 CHECK (submissions >= 0)
);
CREATE INDEX IF NOT EXISTS idx_client_submissions_product ON client_submissions(product);

CREATE TABLE IF NOT EXISTS cross_client_collaboration (
	product TEXT NOT NULL,
	quarter TEXT NOT NULL,
	collaborative_ideas INTEGER NOT NULL DEFAULT 0 CHECK (collaborative_ideas >= 0),
	total_ideas INTEGER NOT NULL DEFAULT 0 CHECK (total_ideas >= 0),
	idea_ids TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_collaboration_product ON cross_client_collaboration(product);

CREATE TABLE IF NOT EXISTS data_socialization_forums (
	product TEXT NOT NULL,
	quarter TEXT NOT NULL,
	forum_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_forums_product ON data_socialization_forums(product);

CREATE TABLE IF NOT EXISTS action_items (
	id TEXT PRIMARY KEY,
	product TEXT NOT NULL,
	quarter TEXT NOT NULL,
	title TEXT NOT NULL,
	owner TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in_progress', 'done')),
	due_date TIMESTAMP NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_items_scope ON action_items(product, quarter);

CREATE TABLE IF NOT EXISTS dashboards (
	user_id TEXT PRIMARY KEY,
	product TEXT NOT NULL,
	quarter TEXT NOT NULL,
	widget_settings TEXT NOT NULL DEFAULT '{}',
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind TEXT NOT NULL,
	expires_at TIMESTAMP NOT NULL,
	revoked_at TIMESTAMP NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS upload_history (
	id TEXT PRIMARY KEY,
	dataset TEXT NOT NULL,
	product TEXT NOT NULL DEFAULT '',
	filename TEXT NOT NULL DEFAULT '',
	rows_read INTEGER NOT NULL DEFAULT 0,
	rows_written INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	uploaded_by TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_upload_history_created ON upload_history(created_at);
`
