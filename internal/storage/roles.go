package storage

import "context"

// Role buckets group guild roles that share a permission level.
const (
	BucketAdmin = "admin"
	BucketStaff = "staff"
)

func (s *Store) AddBucketRole(ctx context.Context, guildID, bucket, roleID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO role_buckets (guild_id, bucket, role_id) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`), guildID, bucket, roleID)
	return err
}

func (s *Store) RemoveBucketRole(ctx context.Context, guildID, bucket, roleID string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM role_buckets WHERE guild_id = ? AND bucket = ? AND role_id = ?`), guildID, bucket, roleID)
	return err
}

func (s *Store) ListBucketRoles(ctx context.Context, guildID, bucket string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT role_id FROM role_buckets WHERE guild_id = ? AND bucket = ? ORDER BY role_id`), guildID, bucket)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
