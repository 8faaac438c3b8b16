package controllers

import (
	"net/http"

	"github.com/jerrybuks/agentic-ecommerce/api/middleware"
	"github.com/jerrybuks/agentic-ecommerce/api/responses"
	"github.com/jerrybuks/agentic-ecommerce/api/validators"
	"github.com/jerrybuks/agentic-ecommerce/internal/agent"
	"github.com/jerrybuks/agentic-ecommerce/pkg/logger"
)

const maxMessageLength = 2000

type agentQueryRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

// AgentQuery is the conversational entrypoint: one message in, one agent
// reply out.
func AgentQuery(svc agent.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req agentQueryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		message := validators.SanitizeString(req.Message, maxMessageLength)

		reply, err := svc.HandleQuery(ctx, userID, message)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, reply)
	}
}
