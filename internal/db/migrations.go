package db

import (
	"fmt"

	"gorm.io/gorm"
)

// tokenColumn 列级增量迁移定义
type tokenColumn struct {
	name string
	ddl  string
}

// 历史版本缺失的列，按引入顺序排列
// AutoMigrate 已能补齐这些列，此处保留显式迁移以兼容
// 手工建表或从旧版数据库文件升级的场景
var guestTokenColumns = []tokenColumn{
	{"uid", "ALTER TABLE guest_tokens ADD COLUMN uid varchar(36)"},
	{"is_never_expire", "ALTER TABLE guest_tokens ADD COLUMN is_never_expire numeric DEFAULT 0"},
	{"dashboard", "ALTER TABLE guest_tokens ADD COLUMN dashboard varchar(100)"},
	{"dashboards", "ALTER TABLE guest_tokens ADD COLUMN dashboards text"},
	{"first_used_at", "ALTER TABLE guest_tokens ADD COLUMN first_used_at datetime"},
	{"last_used_at", "ALTER TABLE guest_tokens ADD COLUMN last_used_at datetime"},
	{"times_used", "ALTER TABLE guest_tokens ADD COLUMN times_used integer DEFAULT 0"},
	{"usage_limit", "ALTER TABLE guest_tokens ADD COLUMN usage_limit integer"},
	{"managed_user", "ALTER TABLE guest_tokens ADD COLUMN managed_user numeric DEFAULT 0"},
	{"managed_user_name", "ALTER TABLE guest_tokens ADD COLUMN managed_user_name varchar(100)"},
	{"managed_user_groups", "ALTER TABLE guest_tokens ADD COLUMN managed_user_groups text"},
	{"local_only", "ALTER TABLE guest_tokens ADD COLUMN local_only numeric DEFAULT 0"},
}

// MigrateGuestTokens 对 guest_tokens 表执行幂等迁移
// 1. 缺列补列（add-column-if-missing）
// 2. 一次性表重建：早期版本将 start_date/end_date 声明为 NOT NULL，
//    永不过期令牌引入后需放宽为可空
func MigrateGuestTokens(db *gorm.DB) error {
	columns, notNull, err := tableInfo(db, "guest_tokens")
	if err != nil {
		return err
	}

	for _, col := range guestTokenColumns {
		if columns[col.name] {
			continue
		}
		if err := db.Exec(col.ddl).Error; err != nil {
			return fmt.Errorf("添加列 %s 失败: %w", col.name, err)
		}
	}

	// 两个日期列只要有一个仍是 NOT NULL 就需要重建
	if notNull["start_date"] || notNull["end_date"] {
		if err := rebuildGuestTokens(db); err != nil {
			return fmt.Errorf("重建 guest_tokens 表失败: %w", err)
		}
	}

	return nil
}

// tableInfo 读取表的列名集合与 NOT NULL 标记
func tableInfo(db *gorm.DB, table string) (map[string]bool, map[string]bool, error) {
	type columnInfo struct {
		Name    string `gorm:"column:name"`
		NotNull int    `gorm:"column:notnull"`
	}

	var infos []columnInfo
	if err := db.Raw(fmt.Sprintf("PRAGMA table_info(%s)", table)).Scan(&infos).Error; err != nil {
		return nil, nil, fmt.Errorf("读取表结构失败: %w", err)
	}

	columns := make(map[string]bool, len(infos))
	notNull := make(map[string]bool, len(infos))
	for _, info := range infos {
		columns[info.Name] = true
		notNull[info.Name] = info.NotNull != 0
	}
	return columns, notNull, nil
}

// rebuildGuestTokens 按新表结构重建并迁移数据
// sqlite 不支持 ALTER COLUMN，放宽 NOT NULL 只能整表重建
func rebuildGuestTokens(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		statements := []string{
			`CREATE TABLE guest_tokens_new (
				id integer PRIMARY KEY AUTOINCREMENT,
				user_id varchar(36) NOT NULL,
				token_name varchar(100) NOT NULL,
				start_date datetime,
				end_date datetime,
				is_never_expire numeric NOT NULL DEFAULT 0,
				capability_token text NOT NULL,
				uid varchar(36),
				session_ref_id varchar(36),
				session_token text,
				first_used_at datetime,
				last_used_at datetime,
				times_used integer NOT NULL DEFAULT 0,
				usage_limit integer,
				dashboard varchar(100),
				dashboards text,
				managed_user numeric NOT NULL DEFAULT 0,
				managed_user_name varchar(100),
				managed_user_groups text,
				local_only numeric NOT NULL DEFAULT 0,
				created_at datetime
			)`,
			`INSERT INTO guest_tokens_new (
				id, user_id, token_name, start_date, end_date, is_never_expire,
				capability_token, uid, session_ref_id, session_token,
				first_used_at, last_used_at, times_used, usage_limit,
				dashboard, dashboards, managed_user, managed_user_name,
				managed_user_groups, local_only, created_at
			)
			SELECT
				id, user_id, token_name, start_date, end_date, is_never_expire,
				capability_token, uid, session_ref_id, session_token,
				first_used_at, last_used_at, times_used, usage_limit,
				dashboard, dashboards, managed_user, managed_user_name,
				managed_user_groups, local_only, created_at
			FROM guest_tokens`,
			`DROP TABLE guest_tokens`,
			`ALTER TABLE guest_tokens_new RENAME TO guest_tokens`,
			`CREATE INDEX idx_guest_tokens_user_id ON guest_tokens(user_id)`,
			`CREATE UNIQUE INDEX idx_guest_tokens_uid ON guest_tokens(uid)`,
		}

		for _, stmt := range statements {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
