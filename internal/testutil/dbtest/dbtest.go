// Package dbtest 测试用的SQLite数据库
//
// 使用SQLite代替MySQL，仓储代码原样运行（同样的GORM查询、事务、条件UPDATE）。
// 数据库文件放在t.TempDir()下：事务ctx被取消时database/sql会丢弃连接，
// 内存库会随最后一个连接一起消失，文件库不会。
// 连接池限制为1个连接：同一时刻只有一个事务能执行，
// 并发下单测试里后到的事务会等待，效果与MySQL行锁等待一致
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open 创建独立的测试数据库，migrate用于建表（通常传mysql.AutoMigrate）
func Open(t testing.TB, migrate func(*gorm.DB) error) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "storefront.db")
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开测试数据库失败: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取SQL DB失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if migrate != nil {
		if err := migrate(db); err != nil {
			t.Fatalf("建表失败: %v", err)
		}
	}
	return db
}
