package ports

import (
	"context"
	"time"

	"github.com/dcastano/btcpayd/internal/domain"
)

// Storage persiste el journal de eventos del ciclo de vida de cada pago.
// Es un registro de auditoría: la reconstrucción tras un restart usa las
// fuentes externas (order matches + pending actions), nunca este journal.
type Storage interface {
	// SaveEvent persiste un evento del ciclo de vida.
	SaveEvent(ctx context.Context, ev domain.PaymentEvent) error

	// History devuelve los eventos registrados en el rango de tiempo dado.
	History(ctx context.Context, from, to time.Time) ([]domain.PaymentEvent, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
