package reports

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/utils"
	"github.com/xuri/excelize/v2"
)

type DestructionDueResponse struct {
	CrateId         int        `json:"crate_id"`
	Barcode         string     `json:"barcode"`
	DestructionDate *time.Time `json:"destruction_date"`
	Status          string     `json:"status"`
	UnitName        string     `json:"unit_name"`
	DepartmentName  string     `json:"department_name"`
	Location        *string    `json:"location"`
	DocumentCount   int64      `json:"document_count"`
}

// GetDestructionDueReport lists crates whose destruction date falls on or
// before the end of the current month, excluding retained and already
// destroyed crates.
func GetDestructionDueReport(ctx context.Context, unitId *int, now time.Time) ([]*DestructionDueResponse, error) {
	sql := `
SELECT
    c.id AS crate_id,
    c.barcode,
    c.destruction_date,
    c.status,
    u.unit_name AS unit_name,
    d.department_name AS department_name,
    CONCAT_WS('-', s.room_name, s.rack_name, s.compartment_name, s.shelf_name) AS location,
    (SELECT COUNT(cd.id) FROM crate_documents cd WHERE cd.crate_id = c.id) AS document_count
FROM
    crates c
    LEFT JOIN units u ON u.id = c.unit_id
    LEFT JOIN departments d ON d.id = c.department_id
    LEFT JOIN storage_locations s ON s.id = c.storage_id
WHERE
    c.status != 'Destroyed'
    AND c.to_be_retained = FALSE
    AND c.destruction_date IS NOT NULL
    AND c.destruction_date <= @dueBefore
    AND (@unitId IS NULL OR c.unit_id = @unitId)
ORDER BY
    c.destruction_date, c.barcode
`
	var records []*DestructionDueResponse
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, map[string]interface{}{
		"dueBefore": utils.EndOfCurrentMonth(now),
		"unitId":    unitId,
	}).Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ExportDestructionDueExcel streams the due list as an xlsx workbook.
func ExportDestructionDueExcel(w io.Writer, data []*DestructionDueResponse) error {
	f := excelize.NewFile()
	sheetName := "DestructionDue"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headings := []string{"Barcode", "DestructionDate", "Status", "Unit", "Department", "Location", "Documents"}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		f.SetCellValue(sheetName, cell, h)
	}

	for i, d := range data {
		row := i + 2
		f.SetCellValue(sheetName, "A"+fmt.Sprint(row), d.Barcode)
		if d.DestructionDate != nil {
			f.SetCellValue(sheetName, "B"+fmt.Sprint(row), d.DestructionDate.Format("2006-01-02"))
		}
		f.SetCellValue(sheetName, "C"+fmt.Sprint(row), d.Status)
		f.SetCellValue(sheetName, "D"+fmt.Sprint(row), d.UnitName)
		f.SetCellValue(sheetName, "E"+fmt.Sprint(row), d.DepartmentName)
		f.SetCellValue(sheetName, "F"+fmt.Sprint(row), utils.DereferencePtr(d.Location, ""))
		f.SetCellValue(sheetName, "G"+fmt.Sprint(row), d.DocumentCount)
	}

	return f.Write(w)
}
