package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/rateplan/internal/core/domain"
	"github.com/samirrijal/rateplan/internal/pkg/logging"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error kind: no_spatial_data, empty_plan, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// statusFor maps a pipeline error kind to its HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNoSpatialData,
		domain.KindAmbiguousInput,
		domain.KindAmbiguousArchiveContent,
		domain.KindNoShapefileInArchive,
		domain.KindInvalidArchive,
		domain.KindMalformedGeometry,
		domain.KindInvalidDocument,
		domain.KindInvalidCRS,
		domain.KindInvalidSettings:
		return fiber.StatusBadRequest
	case domain.KindNoUniqueRateKey,
		domain.KindNoPositiveRateValues,
		domain.KindInconsistentSchema,
		domain.KindInvalidRateValue,
		domain.KindEmptyPlan,
		domain.KindNoArealGeometry,
		domain.KindMissingBoundaryAndPlan:
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}

// writeDomainError renders err as an APIError. Classified errors keep their
// message; anything else is logged and reported as an internal error.
func writeDomainError(c *fiber.Ctx, err error) error {
	log := logging.FromContext(c.UserContext())

	if kind, ok := domain.KindOf(err); ok {
		status := statusFor(kind)
		log.Warn("request rejected", "code", string(kind), "status", status, "error", err)
		return newError(c, status, string(kind), err.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// Let the timeout middleware answer 408.
		return err
	}
	log.Error("request failed", "error", err)
	return errInternal(c, "internal error")
}
