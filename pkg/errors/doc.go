// Package errors provides structured error handling with error codes for identity-admin.
//
// Every service returns either a plain wrapped error (storage failures) or an
// *Error carrying an ErrorCode. Resource lookups that miss return a
// "<Resource>DoesNotExist" code, uniqueness failures return a *Conflict whose
// code is "<Resource>ExistsKey".
//
// # Basic Usage
//
//	err := errors.DoesNotExist(errors.ErrCodeClientDoesNotExist, "Client with id %d doesn't exist", id)
//	if errors.IsCode(err, errors.ErrCodeClientDoesNotExist) {
//		// 404
//	}
//
// # Conflicts
//
// A Conflict carries the rejected candidate so the caller can re-render the
// form it came from:
//
//	if c, ok := errors.AsConflict[*apiscope.PropertiesView](err); ok {
//		render.JSON(w, r, c.Candidate)
//	}
//
// # HTTP mapping
//
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
package errors
