package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bullpen/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, photo_url, status, role,
		        first_login_at, last_login_at, login_count
		 FROM profiles WHERE id = $1`,
		id,
	)

	profile, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return profile, nil
}

// Create はプロフィールを新規作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles
		   (id, email, display_name, photo_url, status, role,
		    first_login_at, last_login_at, login_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		profile.ID, profile.Email, profile.DisplayName, profile.PhotoURL,
		profile.Status, profile.Role,
		profile.FirstLoginAt, profile.LastLoginAt, profile.LoginCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// UpdateLogin はログイン同期の更新を適用する。
// login_countはSQL側でインクリメントし、並行ログインでも取りこぼさない。
func (r *PostgresProfileRepo) UpdateLogin(ctx context.Context, update ProfileLoginUpdate) error {
	var result sql.Result
	var err error

	if update.ForceAdmin {
		// 許可リスト所属は保存値に常に優先する（自己修復）
		result, err = r.db.ExecContext(ctx,
			`UPDATE profiles
			 SET email = $2, display_name = $3, photo_url = $4,
			     last_login_at = $5, login_count = login_count + 1,
			     role = 'admin', status = 'approved'
			 WHERE id = $1`,
			update.ID, update.Email, update.DisplayName, update.PhotoURL,
			update.LastLoginAt,
		)
	} else {
		result, err = r.db.ExecContext(ctx,
			`UPDATE profiles
			 SET email = $2, display_name = $3, photo_url = $4,
			     last_login_at = $5, login_count = login_count + 1
			 WHERE id = $1`,
			update.ID, update.Email, update.DisplayName, update.PhotoURL,
			update.LastLoginAt,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update profile login: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", update.ID)
	}

	return nil
}

// UpdateStatus は承認状態のみを更新する。
func (r *PostgresProfileRepo) UpdateStatus(ctx context.Context, id string, status model.ProfileStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET status = $2 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("profile not found: %s", id)
	}

	return nil
}

// ListAll は全プロフィールを返す。
func (r *PostgresProfileRepo) ListAll(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, display_name, photo_url, status, role,
		        first_login_at, last_login_at, login_count
		 FROM profiles`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通部分。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanProfile は1行をProfileに読み取り、読み取り境界でスキーマ検証を行う。
// 未知のstatus/role値は保存形を信頼せず、検証エラーとして返す。
func scanProfile(row rowScanner) (*model.Profile, error) {
	profile := &model.Profile{}
	var lastLogin sql.NullTime

	err := row.Scan(
		&profile.ID, &profile.Email, &profile.DisplayName, &profile.PhotoURL,
		&profile.Status, &profile.Role,
		&profile.FirstLoginAt, &lastLogin, &profile.LoginCount,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	if lastLogin.Valid {
		profile.LastLoginAt = lastLogin.Time
	}

	if !profile.Status.Valid() {
		return nil, model.NewProfileInvalidError(profile.ID, fmt.Sprintf("unknown status %q", profile.Status))
	}
	if !profile.Role.Valid() {
		return nil, model.NewProfileInvalidError(profile.ID, fmt.Sprintf("unknown role %q", profile.Role))
	}

	return profile, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
