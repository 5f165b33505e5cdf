package storage

// sqlite.go — journal de auditoría del ciclo de vida de los pagos.
//
// Estrategia:
//   - `payment_events`: una fila por transición (observed, promoted,
//     broadcast, failed, expired, confirmed). Append-only.
//   - Nunca se usa para reconstruir estado tras un restart: eso lo hacen
//     las fuentes externas (order matches + pending actions). Esto es solo
//     histórico consultable.
//   - Prune automático al arrancar: eventos > 90 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dcastano/btcpayd/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por transición del ciclo de vida de un pago
CREATE TABLE IF NOT EXISTS payment_events (
    id              TEXT PRIMARY KEY,
    order_match_id  TEXT     NOT NULL,
    type            TEXT     NOT NULL,
    address         TEXT     NOT NULL DEFAULT '',
    quantity        INTEGER  NOT NULL DEFAULT 0,
    detail          TEXT     NOT NULL DEFAULT '',
    at              DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_match ON payment_events(order_match_id);
CREATE INDEX IF NOT EXISTS idx_events_at    ON payment_events(at DESC);
`

// retentionEvents: los matches expiran en días; 90 días de journal sobran.
const retentionEvents = 90 * 24 * time.Hour

// SQLiteStorage implementa ports.Storage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia eventos antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveEvent persiste un evento del ciclo de vida.
func (s *SQLiteStorage) SaveEvent(ctx context.Context, ev domain.PaymentEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_events (id, order_match_id, type, address, quantity, detail, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.OrderMatchID, string(ev.Type), ev.Address, ev.Quantity, ev.Detail, ev.At,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveEvent: insert: %w", err)
	}
	return nil
}

// History devuelve los eventos en el rango dado, más recientes primero.
func (s *SQLiteStorage) History(ctx context.Context, from, to time.Time) ([]domain.PaymentEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_match_id, type, address, quantity, detail, at
		 FROM payment_events
		 WHERE at >= ? AND at <= ?
		 ORDER BY at DESC`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.History: query: %w", err)
	}
	defer rows.Close()

	var events []domain.PaymentEvent
	for rows.Next() {
		var ev domain.PaymentEvent
		var typ string
		if err := rows.Scan(&ev.ID, &ev.OrderMatchID, &typ, &ev.Address, &ev.Quantity, &ev.Detail, &ev.At); err != nil {
			return nil, fmt.Errorf("storage.History: scan: %w", err)
		}
		ev.Type = domain.EventType(typ)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// MatchHistory devuelve todos los eventos de un order match, en orden.
func (s *SQLiteStorage) MatchHistory(ctx context.Context, orderMatchID string) ([]domain.PaymentEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_match_id, type, address, quantity, detail, at
		 FROM payment_events
		 WHERE order_match_id = ?
		 ORDER BY at ASC`,
		orderMatchID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage.MatchHistory: query: %w", err)
	}
	defer rows.Close()

	var events []domain.PaymentEvent
	for rows.Next() {
		var ev domain.PaymentEvent
		var typ string
		if err := rows.Scan(&ev.ID, &ev.OrderMatchID, &typ, &ev.Address, &ev.Quantity, &ev.Detail, &ev.At); err != nil {
			return nil, fmt.Errorf("storage.MatchHistory: scan: %w", err)
		}
		ev.Type = domain.EventType(typ)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close cierra la conexión.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld borra eventos más viejos que la retención. Errores solo se
// ignoran: el prune es oportunista.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionEvents)
	_, _ = s.db.ExecContext(ctx, `DELETE FROM payment_events WHERE at < ?`, cutoff)
}
