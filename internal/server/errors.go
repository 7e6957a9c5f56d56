package server

import (
	"errors"
	"net/http"

	"github.com/rastermill/rastermill/pkg/dataflow"
	apperrors "github.com/rastermill/rastermill/pkg/errors"
	"github.com/rastermill/rastermill/pkg/httputil"
	"github.com/rastermill/rastermill/pkg/layerstore"
)

// writeError translates any error crossing the API boundary into the
// JSON error envelope, deriving the machine code and HTTP status.
func writeError(w http.ResponseWriter, err error) {
	code := codeFor(err)
	httputil.WriteError(w, statusForCode(code), code, "%s", apperrors.UserMessage(err))
}

// codeFor maps an error to its machine-readable code. Coded errors keep
// their code; graph and store sentinels are translated here so the
// library packages stay free of transport concerns.
func codeFor(err error) apperrors.Code {
	if code := apperrors.GetCode(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, dataflow.ErrUnknownNode):
		return apperrors.ErrCodeNodeNotFound
	case errors.Is(err, dataflow.ErrInvalidNodeID),
		errors.Is(err, dataflow.ErrDuplicateNodeID),
		errors.Is(err, dataflow.ErrUnknownKind):
		return apperrors.ErrCodeInvalidNode
	case errors.Is(err, dataflow.ErrUnknownSocket),
		errors.Is(err, dataflow.ErrSocketType),
		errors.Is(err, dataflow.ErrInvalidEdgeEndpoint):
		return apperrors.ErrCodeInvalidEdge
	case errors.Is(err, dataflow.ErrGraphHasCycle):
		return apperrors.ErrCodeGraphCycle
	case errors.Is(err, layerstore.ErrNotFound):
		return apperrors.ErrCodeLayerNotFound
	default:
		return apperrors.ErrCodeInternal
	}
}

// statusForCode maps machine codes to HTTP statuses. Validation codes
// are client errors, missing resources are 404, a cycle conflicts with
// the current graph, and store failures surface as a bad upstream.
func statusForCode(code apperrors.Code) int {
	switch code {
	case apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeInvalidNode,
		apperrors.ErrCodeInvalidEdge,
		apperrors.ErrCodeInvalidParam,
		apperrors.ErrCodeInvalidMode,
		apperrors.ErrCodeInvalidProject,
		apperrors.ErrCodeUnsupported:
		return http.StatusBadRequest
	case apperrors.ErrCodeNotFound,
		apperrors.ErrCodeNodeNotFound,
		apperrors.ErrCodeLayerNotFound,
		apperrors.ErrCodeProjectNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeGraphCycle:
		return http.StatusConflict
	case apperrors.ErrCodeStore:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
