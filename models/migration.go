package models

import (
	"log"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Unit{}, &Department{}, &Section{},
		&Role{}, &Privilege{}, &User{},
		&Document{}, &Crate{}, &CrateDocument{},
		&Request{}, &RequestDocument{}, &SendBack{},
		&StorageLocation{}, &BarcodeSequence{},
		&AuditTrail{}, &ArchiveEventRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
