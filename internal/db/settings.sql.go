package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getAppSettings = `-- name: GetAppSettings :one
SELECT id, banner, cached_at, updated_at FROM app_settings WHERE id = 1
`

func (q *Queries) GetAppSettings(ctx context.Context) (AppSetting, error) {
	row := q.db.QueryRow(ctx, getAppSettings)
	var i AppSetting
	err := row.Scan(&i.ID, &i.Banner, &i.CachedAt, &i.UpdatedAt)
	return i, err
}

const updateAppSettings = `-- name: UpdateAppSettings :one
UPDATE app_settings
SET banner = CASE WHEN $1::boolean THEN $2 ELSE banner END,
    cached_at = COALESCE($3, cached_at),
    updated_at = now()
WHERE id = 1
RETURNING id, banner, cached_at, updated_at
`

type UpdateAppSettingsParams struct {
	SetBanner bool               `json:"set_banner"`
	Banner    pgtype.Text        `json:"banner"`
	CachedAt  pgtype.Timestamptz `json:"cached_at"`
}

func (q *Queries) UpdateAppSettings(ctx context.Context, arg UpdateAppSettingsParams) (AppSetting, error) {
	row := q.db.QueryRow(ctx, updateAppSettings, arg.SetBanner, arg.Banner, arg.CachedAt)
	var i AppSetting
	err := row.Scan(&i.ID, &i.Banner, &i.CachedAt, &i.UpdatedAt)
	return i, err
}
