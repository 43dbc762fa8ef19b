package store

import (
	"context"
	"fmt"

	"github.com/NhutViet/Construction-materials-management-sub001/internal/lifecycle"
	"github.com/NhutViet/Construction-materials-management-sub001/internal/models"

	"go.uber.org/zap"
)

// BulkFailure fallo individual dentro de una operación masiva
type BulkFailure struct {
	ID  string
	Err error
}

// BulkResult resultado agregado de una operación masiva: qué ids terminaron y
// cuáles fallaron, con su error. Una operación masiva no es transaccional:
// los éxitos persisten aunque otros ids fallen.
type BulkResult struct {
	Succeeded []string
	Failures  []BulkFailure
}

// Failed reporta si al menos un id falló
func (r BulkResult) Failed() bool {
	return len(r.Failures) > 0
}

// eligibilityError traduce un registro no elegible al error de dominio que lo
// explica. Devuelve nil si el registro sí es elegible.
func eligibilityError(rec *models.StockIn) error {
	if lifecycle.Selectable(rec) {
		return nil
	}
	switch {
	case rec.Status == models.StatusApproved:
		return lifecycle.ErrRecordApproved
	case rec.PaymentStatus != models.PaymentUnpaid:
		return lifecycle.ErrHasPayments
	default:
		return fmt.Errorf("stock-in %s is not selectable", rec.ID)
	}
}

// selectEligible separa los ids elegibles de los que fallan la pre-condición.
// Un id que no está en caché no se puede pre-validar y pasa como elegible:
// el servidor es quien decide en última instancia.
func (s *Store) selectEligible(ids []string) ([]string, []BulkFailure) {
	eligible := make([]string, 0, len(ids))
	var failures []BulkFailure
	for _, id := range ids {
		rec := s.lookup(id)
		if rec == nil {
			eligible = append(eligible, id)
			continue
		}
		if err := eligibilityError(rec); err != nil {
			failures = append(failures, BulkFailure{ID: id, Err: err})
			continue
		}
		eligible = append(eligible, id)
	}
	return eligible, failures
}

// refresh recarga la página y las estadísticas tras una operación masiva.
// Se ejecuta siempre, también tras fallos parciales: los éxitos ya
// persistieron y la vista debe reflejarlos.
func (s *Store) refresh(ctx context.Context) {
	if err := s.Load(ctx); err != nil {
		s.logger.Error("Post-bulk reload failed", zap.Error(err))
	}
	if err := s.RefreshStatistics(ctx); err != nil {
		s.logger.Error("Post-bulk statistics refresh failed", zap.Error(err))
	}
}

// BulkDelete elimina los ids dados en secuencia estricta. Los ids no
// elegibles fallan por adelantado sin llamada de red; el resto se procesa uno
// a uno y los fallos individuales no frenan a los siguientes.
func (s *Store) BulkDelete(ctx context.Context, ids []string) BulkResult {
	eligible, failures := s.selectEligible(ids)
	result := BulkResult{Failures: failures}

	for _, id := range eligible {
		deletedID, err := s.client.Remove(ctx, id)
		if err != nil {
			s.recordError(err)
			result.Failures = append(result.Failures, BulkFailure{ID: id, Err: err})
			continue
		}
		s.RemoveRecord(deletedID)
		result.Succeeded = append(result.Succeeded, id)
	}

	s.logger.Info("Bulk delete finished",
		zap.Int("requested", len(ids)),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failures)))

	s.refresh(ctx)
	return result
}

// BulkSetStatus cambia el estado de aprobación de los ids dados en secuencia.
// Aplica la misma pre-condición de elegibilidad que el resto de operaciones
// masivas: registros aprobados o con pagos fallan por adelantado.
func (s *Store) BulkSetStatus(ctx context.Context, ids []string, status models.StockInStatus) BulkResult {
	eligible, failures := s.selectEligible(ids)
	result := BulkResult{Failures: failures}

	for _, id := range eligible {
		rec, err := s.client.SetStatus(ctx, id, status)
		if err != nil {
			s.recordError(err)
			result.Failures = append(result.Failures, BulkFailure{ID: id, Err: err})
			continue
		}
		s.ApplyRecordMutation(rec)
		result.Succeeded = append(result.Succeeded, id)
	}

	s.logger.Info("Bulk status update finished",
		zap.String("status", string(status)),
		zap.Int("requested", len(ids)),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failures)))

	s.refresh(ctx)
	return result
}

// BulkSetPayment lleva los ids dados al estado de pago objetivo. Solo "paid"
// es derivable sin monto por registro (acumulado = total); "partial" exige un
// monto concreto y se rechaza como objetivo masivo.
func (s *Store) BulkSetPayment(ctx context.Context, ids []string, target models.PaymentStatus) BulkResult {
	if target != models.PaymentPaid {
		var result BulkResult
		for _, id := range ids {
			result.Failures = append(result.Failures, BulkFailure{
				ID:  id,
				Err: fmt.Errorf("bulk payment target %q is not supported, only %q", target, models.PaymentPaid),
			})
		}
		return result
	}

	eligible, failures := s.selectEligible(ids)
	result := BulkResult{Failures: failures}

	for _, id := range eligible {
		rec := s.lookup(id)
		if rec == nil {
			fresh, err := s.client.GetByID(ctx, id)
			if err != nil {
				s.recordError(err)
				result.Failures = append(result.Failures, BulkFailure{ID: id, Err: err})
				continue
			}
			if err := eligibilityError(fresh); err != nil {
				result.Failures = append(result.Failures, BulkFailure{ID: id, Err: err})
				continue
			}
			rec = fresh
		}

		updated, err := s.client.SetPayment(ctx, id, &models.UpdatePaymentRequest{
			PaymentStatus: models.PaymentPaid,
			PaidAmount:    rec.TotalAmount,
		})
		if err != nil {
			s.recordError(err)
			result.Failures = append(result.Failures, BulkFailure{ID: id, Err: err})
			continue
		}
		s.ApplyRecordMutation(updated)
		result.Succeeded = append(result.Succeeded, id)
	}

	s.logger.Info("Bulk payment update finished",
		zap.Int("requested", len(ids)),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failures)))

	s.refresh(ctx)
	return result
}
