package mods

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dmitrijs2005/modhub/internal/common"
	"github.com/dmitrijs2005/modhub/internal/dbx"
	"github.com/dmitrijs2005/modhub/internal/models"
)

// selectMods aggregates the versions into a JSON array so that a mod and its
// versions always come from the same statement snapshot.
const selectMods = `
	SELECT m.id, m.name, m.description, m.category, m.author, m.author_id,
	       m.rating, m.downloads, m.created_at, m.file_path,
	       COALESCE(json_agg(v.version ORDER BY v.id) FILTER (WHERE v.id IS NOT NULL), '[]'::json)
	FROM mods m
	LEFT JOIN mod_versions v ON v.mod_id = m.id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func validateMod(mod *models.Mod) error {
	switch {
	case mod.Name == "":
		return fmt.Errorf("%w: name is required", common.ErrValidation)
	case mod.Category == "":
		return fmt.Errorf("%w: category is required", common.ErrValidation)
	case mod.Author == "":
		return fmt.Errorf("%w: author is required", common.ErrValidation)
	case mod.FilePath == "":
		return fmt.Errorf("%w: file path is required", common.ErrValidation)
	}
	for _, v := range mod.Versions {
		if v == "" {
			return fmt.Errorf("%w: version must not be empty", common.ErrValidation)
		}
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, mod *models.Mod) (*models.Mod, error) {
	if err := validateMod(mod); err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO mods (name, description, category, author, author_id, file_path)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, rating, downloads, created_at
		 `
	err := r.db.QueryRowContext(ctx, query,
		mod.Name, mod.Description, mod.Category, mod.Author, mod.AuthorID, mod.FilePath).
		Scan(&mod.ID, &mod.Rating, &mod.Downloads, &mod.CreatedAt)
	if err != nil {
		if _, ok := dbx.Constraint(err, dbx.CodeForeignKeyViolation); ok {
			return nil, fmt.Errorf("%w: author %d does not exist", common.ErrValidation, mod.AuthorID)
		}
		if _, ok := dbx.Constraint(err, dbx.CodeCheckViolation); ok {
			return nil, fmt.Errorf("%w: %w", common.ErrValidation, err)
		}
		return nil, dbx.Wrap(err)
	}

	for _, v := range mod.Versions {
		if err := r.insertVersion(ctx, mod.ID, v); err != nil {
			return nil, err
		}
	}
	if mod.Versions == nil {
		mod.Versions = []string{}
	}

	return mod, nil
}

func (r *PostgresRepository) insertVersion(ctx context.Context, modID int64, version string) error {
	query := `INSERT INTO mod_versions (mod_id, version) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, modID, version); err != nil {
		if _, ok := dbx.Constraint(err, dbx.CodeForeignKeyViolation); ok {
			return fmt.Errorf("%w: mod %d", common.ErrNotFound, modID)
		}
		return dbx.Wrap(err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, filter models.ModFilter) ([]models.Mod, error) {
	where, args := buildFilter(filter)
	query := selectMods + where + `
	GROUP BY m.id
	ORDER BY m.created_at DESC, m.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.Wrap(err)
	}
	defer rows.Close()

	result := make([]models.Mod, 0)
	for rows.Next() {
		mod, err := scanMod(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *mod)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Wrap(err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Mod, error) {
	query := selectMods + `
	WHERE m.id = $1
	GROUP BY m.id`

	mod, err := scanMod(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return mod, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMod(s scanner) (*models.Mod, error) {
	mod := &models.Mod{}
	var versions []byte
	err := s.Scan(&mod.ID, &mod.Name, &mod.Description, &mod.Category, &mod.Author, &mod.AuthorID,
		&mod.Rating, &mod.Downloads, &mod.CreatedAt, &mod.FilePath, &versions)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, dbx.Wrap(err)
	}
	mod.Versions = []string{}
	if len(versions) > 0 {
		if err := json.Unmarshal(versions, &mod.Versions); err != nil {
			return nil, fmt.Errorf("decode versions of mod %d: %w", mod.ID, err)
		}
	}
	return mod, nil
}

// buildFilter renders the WHERE clause for filter with positional arguments.
func buildFilter(filter models.ModFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Category != "" {
		add(`m.category = $%d`, filter.Category)
	}
	if filter.Query != "" {
		add(`(m.name ILIKE $%[1]d ESCAPE '\' OR m.description ILIKE $%[1]d ESCAPE '\' OR m.author ILIKE $%[1]d ESCAPE '\')`,
			"%"+escapeLike(filter.Query)+"%")
	}
	if filter.VersionPrefix != "" {
		add(`EXISTS (SELECT 1 FROM mod_versions fv WHERE fv.mod_id = m.id AND fv.version LIKE $%d ESCAPE '\')`,
			escapeLike(filter.VersionPrefix)+"%")
	}
	if filter.AuthorID != 0 {
		add(`m.author_id = $%d`, filter.AuthorID)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "\n\tWHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (r *PostgresRepository) AuthorOf(ctx context.Context, id int64) (int64, error) {
	query := `SELECT author_id FROM mods WHERE id = $1 FOR UPDATE`

	var authorID int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&authorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, dbx.Wrap(err)
	}
	return authorID, nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM mods WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, dbx.Wrap(err)
	}
	return exists, nil
}

func (r *PostgresRepository) IncrementDownloads(ctx context.Context, id int64) (int64, error) {
	query :=
		`UPDATE mods SET downloads = downloads + 1
		 WHERE id = $1
		 RETURNING downloads
		 `

	var downloads int64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&downloads); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, dbx.Wrap(err)
	}
	return downloads, nil
}

func (r *PostgresRepository) UpdateRating(ctx context.Context, id int64, rating float64) error {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return fmt.Errorf("%w: rating must be a finite number", common.ErrValidation)
	}

	query := `UPDATE mods SET rating = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, rating, id)
	if err != nil {
		return dbx.Wrap(err)
	}
	return expectOneRow(res)
}

func (r *PostgresRepository) AddVersion(ctx context.Context, modID int64, version string) error {
	if version == "" {
		return fmt.Errorf("%w: version must not be empty", common.ErrValidation)
	}
	return r.insertVersion(ctx, modID, version)
}

func (r *PostgresRepository) Versions(ctx context.Context, modID int64) ([]string, error) {
	query := `SELECT version FROM mod_versions WHERE mod_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, modID)
	if err != nil {
		return nil, dbx.Wrap(err)
	}
	defer rows.Close()

	versions := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, dbx.Wrap(err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.Wrap(err)
	}
	return versions, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM mods WHERE id = $1`, id)
	if err != nil {
		return dbx.Wrap(err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbx.Wrap(err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
