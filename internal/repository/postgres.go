// Package repository stores property records, their embeddings and the
// link activation log in PostgreSQL.
//
// Tables:
//
//	properties(zpid text primary key, zip_code, address, city, state,
//	  price, bedrooms, bathrooms, living_area, home_type, home_status,
//	  year_built, description, img_src, latitude, longitude,
//	  features jsonb, amenities jsonb, images jsonb, tax_history jsonb,
//	  price_history jsonb, schools jsonb, embedding vector(1536),
//	  updated_at timestamptz)
//	link_activations(id bigserial, session_id, message_id, link_type,
//	  label, zpid, outcome, activated_at)
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"rebot/internal/model"
	"rebot/internal/utils"
)

// EmbeddingDimensions is the width of the embedding column
const EmbeddingDimensions = 1536

const propertyColumns = `
	zpid, zip_code, address, city, state, price, bedrooms, bathrooms,
	living_area, home_type, home_status, year_built, description, img_src,
	latitude, longitude, features, images, tax_history, price_history,
	schools, updated_at`

// PropertyFilter narrows a zip code listing query
type PropertyFilter struct {
	PriceMin     *float64
	PriceMax     *float64
	Bedrooms     *int
	Bathrooms    *int
	PropertyType string
	Amenities    []string
}

// FilterFromFeatures builds a listing filter from extracted query features
func FilterFromFeatures(f model.FeatureExtraction) *PropertyFilter {
	pf := &PropertyFilter{
		Bedrooms:     f.PropertyFeatures.Bedrooms,
		Bathrooms:    f.PropertyFeatures.Bathrooms,
		PropertyType: f.PropertyFeatures.PropertyType,
	}
	seen := map[string]bool{}
	for _, group := range [][]string{f.PropertyFeatures.Amenities, f.Filters.Amenities, f.Filters.MustHave} {
		for _, a := range group {
			n := utils.NormalizeAmenity(a)
			if n != "" && !seen[n] {
				seen[n] = true
				pf.Amenities = append(pf.Amenities, n)
			}
		}
	}
	if r := f.Filters.PriceRange; len(r) == 2 {
		if r[0] > 0 {
			lo := r[0]
			pf.PriceMin = &lo
		}
		if r[1] > 0 {
			hi := r[1]
			pf.PriceMax = &hi
		}
	}
	return pf
}

// EmbeddingItem is one embedding to store for a property
type EmbeddingItem struct {
	ZPID      string    `json:"zpid" binding:"required"`
	Embedding []float32 `json:"embedding" binding:"required"`
}

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// buildListingQuery returns the listing query for a zip code and its
// arguments.
func buildListingQuery(zipCode string, f *PropertyFilter, limit int) (string, []interface{}) {
	where := []string{"zip_code = $1"}
	args := []interface{}{zipCode}
	next := 2

	add := func(cond string, v interface{}) {
		where = append(where, fmt.Sprintf(cond, next))
		args = append(args, v)
		next++
	}

	if f != nil {
		if f.PriceMin != nil {
			add("price >= $%d", *f.PriceMin)
		}
		if f.PriceMax != nil {
			add("price <= $%d", *f.PriceMax)
		}
		if f.Bedrooms != nil {
			add("bedrooms >= $%d", *f.Bedrooms)
		}
		if f.Bathrooms != nil {
			add("bathrooms >= $%d", *f.Bathrooms)
		}
		if f.PropertyType != "" {
			add("home_type ILIKE $%d", "%"+f.PropertyType+"%")
		}
		if len(f.Amenities) > 0 {
			conds, params, n := utils.BuildAmenityQuery("amenities", f.Amenities, next)
			where = append(where, conds...)
			args = append(args, params...)
			next = n
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM properties WHERE %s ORDER BY updated_at DESC LIMIT $%d`,
		propertyColumns, strings.Join(where, " AND "), next)
	return query, append(args, limit)
}

// PropertiesByZip lists stored properties in a zip code
func (r *PostgresRepository) PropertiesByZip(ctx context.Context, zipCode string, f *PropertyFilter, limit int) ([]model.PropertyRef, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args := buildListingQuery(zipCode, f, limit)

	var rows []model.PropertyRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}
	out := make([]model.PropertyRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Ref())
	}
	return out, nil
}

// PropertyByZPID returns the stored record, or nil when it is not stored
func (r *PostgresRepository) PropertyByZPID(ctx context.Context, zpid string) (*model.PropertyDetails, error) {
	var row model.PropertyRow
	query := fmt.Sprintf(`SELECT %s FROM properties WHERE zpid = $1`, propertyColumns)
	if err := r.db.GetContext(ctx, &row, query, zpid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	return row.Details(), nil
}

// SimilarProperties returns the nearest neighbours of zpid by cosine
// distance. A property without an embedding has no neighbours.
func (r *PostgresRepository) SimilarProperties(ctx context.Context, zpid string, limit int) ([]model.PropertyRef, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`
		SELECT %s, p.embedding <=> t.embedding AS distance
		FROM properties p, (SELECT embedding FROM properties WHERE zpid = $1) t
		WHERE p.zpid <> $1 AND p.embedding IS NOT NULL AND t.embedding IS NOT NULL
		ORDER BY distance
		LIMIT $2`, prefixed("p", propertyColumns))

	var rows []model.PropertyRow
	if err := r.db.SelectContext(ctx, &rows, query, zpid, limit); err != nil {
		return nil, fmt.Errorf("failed to find similar properties: %w", err)
	}
	out := make([]model.PropertyRef, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Ref())
	}
	return out, nil
}

// SaveProperty upserts a fetched record. The stored embedding is kept.
func (r *PostgresRepository) SaveProperty(ctx context.Context, zipCode string, d *model.PropertyDetails) error {
	if d == nil || d.BasicInfo.ZPID == "" {
		return fmt.Errorf("property record has no zpid")
	}
	b := d.BasicInfo
	if zipCode == "" {
		zipCode = b.Address.Zipcode
	}

	taxes, _ := json.Marshal(d.Taxes)
	prices, _ := json.Marshal(d.PriceHistory)
	schools, _ := json.Marshal(d.Schools)
	var img *string
	if len(d.Images) > 0 {
		img = &d.Images[0]
	}

	query := `
		INSERT INTO properties (zpid, zip_code, address, city, state, price, bedrooms,
			bathrooms, living_area, home_type, home_status, year_built, description,
			img_src, features, images, tax_history, price_history, schools, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, NOW())
		ON CONFLICT (zpid) DO UPDATE SET
			zip_code = EXCLUDED.zip_code, address = EXCLUDED.address, city = EXCLUDED.city,
			state = EXCLUDED.state, price = EXCLUDED.price, bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms, living_area = EXCLUDED.living_area,
			home_type = EXCLUDED.home_type, home_status = EXCLUDED.home_status,
			year_built = EXCLUDED.year_built, description = EXCLUDED.description,
			img_src = EXCLUDED.img_src, features = EXCLUDED.features, images = EXCLUDED.images,
			tax_history = EXCLUDED.tax_history, price_history = EXCLUDED.price_history,
			schools = EXCLUDED.schools, updated_at = NOW()`

	_, err := r.db.ExecContext(ctx, query,
		b.ZPID, zipCode, b.Address.StreetAddress, b.Address.City, b.Address.State,
		float64(b.Price), float64(b.Bedrooms), float64(b.Bathrooms), float64(b.LivingArea),
		b.HomeType, b.HomeStatus, b.YearBuilt, b.Description, img,
		d.Features, model.JSONArray(d.Images), string(taxes), string(prices), string(schools))
	if err != nil {
		return fmt.Errorf("failed to save property %s: %w", b.ZPID, err)
	}
	return nil
}

// BatchUpdateEmbeddings stores embeddings for several properties in one
// transaction and reports per-item failures.
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []EmbeddingItem) (int, []string) {
	success := 0
	var errs []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to start transaction: %v", err)}
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `UPDATE properties SET embedding = $1, updated_at = NOW() WHERE zpid = $2`)
	if err != nil {
		return 0, []string{fmt.Sprintf("failed to prepare statement: %v", err)}
	}
	defer stmt.Close()

	for _, item := range items {
		res, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.ZPID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("zpid %s: %v", item.ZPID, err))
			continue
		}
		if n, _ := res.RowsAffected(); n == 0 {
			errs = append(errs, fmt.Sprintf("zpid %s: not stored", item.ZPID))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		return 0, append(errs, fmt.Sprintf("failed to commit transaction: %v", err))
	}
	return success, errs
}

// LogActivation records one link activation
func (r *PostgresRepository) LogActivation(ctx context.Context, rec model.ActivationRecord) error {
	query := `
		INSERT INTO link_activations (session_id, message_id, link_type, label, zpid, outcome, activated_at)
		VALUES (:session_id, :message_id, :link_type, :label, :zpid, :outcome, :activated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to log activation: %w", err)
	}
	return nil
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
