package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"plancore/pkg/domain"
)

// stubConn is a minimal database/sql driver that captures bucket upserts and
// serves them back on SELECT, standing in for a live Postgres server.
type stubConn struct {
	mu      sync.Mutex
	execs   []string
	buckets map[string][]byte

	failPing bool
	failExec bool
}

type stubDriver struct{ conn *stubConn }

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func newStubDB(t *testing.T) (*sql.DB, *stubConn) {
	t.Helper()
	conn := &stubConn{buckets: make(map[string][]byte)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		t.Fatalf("open stub db: %v", err)
	}
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return c, nil }
func (c *stubConn) Commit() error                       { return nil }
func (c *stubConn) Rollback() error                     { return nil }

func (c *stubConn) Ping(context.Context) error {
	if c.failPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failExec {
		return nil, fmt.Errorf("exec fail")
	}
	c.execs = append(c.execs, query)
	if strings.HasPrefix(strings.TrimSpace(query), "INSERT INTO state") && len(args) == 2 {
		bucket, _ := args[0].Value.(string)
		payload, _ := args[1].Value.([]byte)
		c.buckets[bucket] = append([]byte(nil), payload...)
	}
	return driver.RowsAffected(1), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !strings.Contains(query, "FROM state") {
		return nil, fmt.Errorf("unexpected query %q", query)
	}
	rows := &stubRows{}
	for bucket, payload := range c.buckets {
		rows.data = append(rows.data, [2]any{bucket, append([]byte(nil), payload...)})
	}
	return rows, nil
}

type stubRows struct {
	data [][2]any
	pos  int
}

func (r *stubRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	dest[0] = r.data[r.pos][0]
	dest[1] = r.data[r.pos][1]
	r.pos++
	return nil
}

func stubOpen(db *sql.DB) func() {
	return OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
}

func testPlan() domain.Plan {
	return domain.Plan{
		InstanceID:      "inst-1",
		Vicepresidencia: "Operaciones Mina",
		AreaFisica:      "Chancado Primario",
		Tasks: []domain.Task{
			{
				ItemNumber:       1,
				FindingDate:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
				ObservationOwner: "J. Mamani",
				Company:          "Contratista Andina",
				Location:         "Nivel 3800",
				Activity:         "Inspección mensual",
				HazardFamily:     "Orden y limpieza",
				Description:      "Acumulación de material en vía de tránsito",
				State:            domain.TaskStateOpen,
			},
		},
	}
}

func TestNewStoreEnsuresStateTable(t *testing.T) {
	db, conn := newStubDB(t)
	restore := stubOpen(db)
	defer restore()

	if _, err := NewStore("", domain.NewRulesEngine()); err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
			break
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got execs: %v", conn.execs)
	}
}

func TestRunInTransactionPersistsSnapshot(t *testing.T) {
	db, conn := newStubDB(t)
	restore := stubOpen(db)
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var created domain.Plan
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreatePlan(testPlan())
		return err
	}); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	conn.mu.Lock()
	payload := conn.buckets[plansBucket]
	conn.mu.Unlock()
	if len(payload) == 0 {
		t.Fatalf("expected plans bucket to be persisted")
	}
	var plans map[string]domain.Plan
	if err := json.Unmarshal(payload, &plans); err != nil {
		t.Fatalf("decode persisted plans: %v", err)
	}
	if _, ok := plans[created.ID]; !ok {
		t.Fatalf("persisted snapshot missing plan %s", created.ID)
	}
}

func TestNewStoreHydratesFromSnapshot(t *testing.T) {
	db, conn := newStubDB(t)
	plans := map[string]domain.Plan{"p-1": testPlan()}
	payload, err := json.Marshal(plans)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	conn.buckets[plansBucket] = payload

	restore := stubOpen(db)
	defer restore()

	store, err := NewStore("", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	got, ok := store.GetPlan("p-1")
	if !ok {
		t.Fatalf("expected plan hydrated from snapshot")
	}
	if got.Totals.Total != 1 || got.OverallState != domain.PlanStateOpen {
		t.Fatalf("derived fields must be recomputed on hydrate: %+v", got)
	}
}

func TestNewStoreFailsWhenPingFails(t *testing.T) {
	db, conn := newStubDB(t)
	conn.failPing = true
	restore := stubOpen(db)
	defer restore()

	if _, err := NewStore("", domain.NewRulesEngine()); err == nil {
		t.Fatalf("expected ping failure to surface")
	}
}
