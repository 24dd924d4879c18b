package reports

import (
	"context"

	"github.com/Sidhesh-Sherlekar/cipla-dms-sub002/config"
)

type RequestStatusCount struct {
	RequestType string `json:"request_type"`
	Status      string `json:"status"`
	Count       int64  `json:"count"`
}

type CrateStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type UnitCrateCount struct {
	UnitId   int    `json:"unit_id"`
	UnitName string `json:"unit_name"`
	Count    int64  `json:"count"`
}

type SummaryResponse struct {
	Requests          []*RequestStatusCount `json:"requests"`
	Crates            []*CrateStatusCount   `json:"crates"`
	CratesByUnit      []*UnitCrateCount     `json:"crates_by_unit"`
	OverdueWithdrawal int64                 `json:"overdue_withdrawals"`
}

// GetSummaryReport aggregates request and crate counts for the dashboard.
func GetSummaryReport(ctx context.Context, unitId *int) (*SummaryResponse, error) {
	db := config.GetDB()
	out := SummaryResponse{}

	requestSQL := `
SELECT
    request_type,
    status,
    COUNT(id) AS count
FROM
    requests
WHERE
    (@unitId IS NULL OR unit_id = @unitId)
GROUP BY
    request_type, status
`
	if err := db.WithContext(ctx).Raw(requestSQL, map[string]interface{}{
		"unitId": unitId,
	}).Scan(&out.Requests).Error; err != nil {
		return nil, err
	}

	crateSQL := `
SELECT
    status,
    COUNT(id) AS count
FROM
    crates
WHERE
    (@unitId IS NULL OR unit_id = @unitId)
GROUP BY
    status
`
	if err := db.WithContext(ctx).Raw(crateSQL, map[string]interface{}{
		"unitId": unitId,
	}).Scan(&out.Crates).Error; err != nil {
		return nil, err
	}

	unitSQL := `
SELECT
    c.unit_id,
    u.unit_name AS unit_name,
    COUNT(c.id) AS count
FROM
    crates c
    LEFT JOIN units u ON u.id = c.unit_id
WHERE
    c.status != 'Destroyed'
    AND (@unitId IS NULL OR c.unit_id = @unitId)
GROUP BY
    c.unit_id, u.unit_name
`
	if err := db.WithContext(ctx).Raw(unitSQL, map[string]interface{}{
		"unitId": unitId,
	}).Scan(&out.CratesByUnit).Error; err != nil {
		return nil, err
	}

	overdueSQL := `
SELECT
    COUNT(id)
FROM
    requests
WHERE
    request_type = 'Withdrawal'
    AND status = 'Issued'
    AND expected_return_date < UTC_TIMESTAMP()
    AND (@unitId IS NULL OR unit_id = @unitId)
`
	if err := db.WithContext(ctx).Raw(overdueSQL, map[string]interface{}{
		"unitId": unitId,
	}).Scan(&out.OverdueWithdrawal).Error; err != nil {
		return nil, err
	}

	return &out, nil
}
