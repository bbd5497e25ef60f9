package database

// One statement per entry; the driver rejects multi-statement strings
// unless multiStatements=true is set on the DSN.
var schema = []string{
	`
CREATE TABLE IF NOT EXISTS documents (
    collection VARCHAR(64) NOT NULL,
    doc_key VARCHAR(191) NOT NULL,
    body JSON NOT NULL,
    revision BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
    PRIMARY KEY (collection, doc_key)
)`,
	`
CREATE TABLE IF NOT EXISTS schema_info (
    id TINYINT PRIMARY KEY,
    version INT NOT NULL
)`,
	`INSERT IGNORE INTO schema_info (id, version) VALUES (1, 1)`,
}
