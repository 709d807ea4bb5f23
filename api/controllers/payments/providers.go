package payments

import (
	"net/http"

	"github.com/harborline/payments-core/api/responses"
	"github.com/harborline/payments-core/internal/registry"
	"github.com/harborline/payments-core/pkg/logger"
)

// ProviderList returns the provider registry rows, enabled and disabled.
func ProviderList(repo registry.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]ProviderResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, ProviderResponse{ID: row.ID, IsEnabled: row.IsEnabled})
		}
		responses.WriteSuccess(w, out)
	}
}
