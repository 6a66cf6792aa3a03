package db

// SchemaSQL contains the database schema initialization SQL.
// Record IDs for all three tables are ULID strings generated in Go (see
// ids.go), which keeps message order stable under same-millisecond writes.
const SchemaSQL = `
    -- ==========================================================================
    -- CONVERSATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON conversation TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON conversation TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON conversation TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS conversation_user ON conversation FIELDS user_id;

    -- ==========================================================================
    -- MESSAGE TABLE (append-only transcript)
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON message TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS role ON message TYPE string
        ASSERT $value IN ["user", "assistant"];
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS message_conversation ON message FIELDS conversation;

    -- ==========================================================================
    -- TASK TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS task SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user_id ON task TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON task TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON task TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS completed ON task TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created_at ON task TYPE datetime DEFAULT time::now();
    DEFINE FIELD IF NOT EXISTS updated_at ON task TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS task_user ON task FIELDS user_id;
    DEFINE INDEX IF NOT EXISTS task_completed ON task FIELDS user_id, completed;
`
