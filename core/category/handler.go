package category

import (
	"context"
	"net/http"

	"github.com/avelic/academy/api/web"
	"github.com/avelic/academy/api/weberr"
	"github.com/jmoiron/sqlx"
)

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		cats, err := FetchAll(ctx, db)
		if err != nil {
			return weberr.Unavailable(err)
		}
		return web.Respond(ctx, w, cats, http.StatusOK)
	}
}
