package models

import (
	"log"

	"bitbucket.org/medilink/pharmacy_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Company{}, &Branch{}, &User{},
		&Product{},
		&CodeClass{}, &CodeDetail{}, &CodeSyncStatus{},
		&Notification{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
