package server

import (
	"net/http"

	"github.com/jobcespedes/ansible.hpilo/internal/controller"
	"github.com/jobcespedes/ansible.hpilo/pkg/types"
)

// handlePXEBoot runs one boot-mode operation synchronously: the invocation is
// a single sequential chain of round-trips to one device, so the response
// carries the final observed state directly.
func (s *Server) handlePXEBoot(w http.ResponseWriter, r *http.Request) {
	var req types.BootRequest
	if err := decodeJSON(r, &req); err != nil {
		respondProblemf(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	spec := req.TargetSpec
	s.cfg.Defaults.ApplyTo(&spec)
	if err := spec.Validate(); err != nil {
		respondProblemf(w, http.StatusBadRequest, "invalid parameters: %v", err)
		return
	}

	result, err := s.applier.Apply(r.Context(), spec, req.DryRun)
	if err != nil {
		s.respondOperationFailure(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// respondOperationFailure maps controller failure kinds to HTTP statuses and
// always includes the partially-populated result fields.
func (s *Server) respondOperationFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch controller.KindOf(err) {
	case controller.KindInvalidArgument:
		status = http.StatusBadRequest
	case controller.KindMissingCapability:
		status = http.StatusNotImplemented
	}

	s.logger.Error().
		Err(err).
		Str("kind", controller.KindOf(err).String()).
		Msg("pxe boot operation failed")

	respondJSON(w, status, types.FailureFor(err.Error(), controller.ResultOf(err)))
}
