package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 打开指定 DSN 的 sqlite 数据库并完成迁移
// 每个缓存模式持有独立的数据库实例, 由调用方负责生命周期管理
func Open(dsn string) (*gorm.DB, error) {
	// 确保数据目录存在(内存数据库除外)
	if !strings.Contains(dsn, ":memory:") {
		dbDir := filepath.Dir(dsn)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// 连接数据库
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		// 禁用外键(指定外键时不会在sqlite创建真实的外键约束)
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect sqlite: %w", err)
	}

	// 获取底层数据库连接
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite database object: %w", err)
	}

	// 参见: https://github.com/glebarez/sqlite/issues/52
	// SQLite 只支持单个写入连接
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移数据库表结构
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return db, nil
}

// Close 关闭数据库连接
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
