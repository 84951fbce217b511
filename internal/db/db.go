package db

import (
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var db *gorm.DB

func GetDB() *gorm.DB {
	return db
}

// SetDB replaces the global handle. Tests use this with sqlite.
func SetDB(g *gorm.DB) {
	db = g
}

// InitDB connects to MySQL using MYSQL_DSN and runs migrations. The process
// cannot serve anything without a database, so failures panic.
func InitDB() {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		panic("MYSQL_DSN is not set")
	}

	var err error
	db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect database: " + err.Error())
	}
	log.Println("connected to mysql")

	if err := Migrate(db); err != nil {
		panic("failed to migrate database: " + err.Error())
	}
}

// Migrate creates or updates all tables. Also used by tests against sqlite.
func Migrate(g *gorm.DB) error {
	return g.AutoMigrate(
		&User{},
		&Device{},
		&Memory{},
		&Event{},
		&Idea{},
		&Todo{},
		&Notification{},
		&Comment{},
		&CommentGeneration{},
	)
}
