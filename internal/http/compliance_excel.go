package httpapi

import (
	"bytes"
	"fmt"

	"wisefido-therapy/internal/compliance"
	"wisefido-therapy/internal/service"

	"github.com/xuri/excelize/v2"
)

// ComplianceExportHeader 依从性报告导出表头
var ComplianceExportHeader = []string{
	"Date",
	"ACT Sessions",
	"Sets",
	"Breaths",
	"Sessions Target",
	"Sets Target",
	"Breaths Target",
}

// GenerateComplianceExport 生成依从性报告 Excel 文件
// 每日一行（实际量 + 当日处方推算的目标量），末行是区间合计
func GenerateComplianceExport(report *service.ComplianceReport) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Compliance"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 写入表头
	for col, header := range ComplianceExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 设置列宽
	for i := range ComplianceExportHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		width := 14.0
		if i == 0 {
			width = 16.0 // Date
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 每日一行：实际量 + 当日适用处方的目标量
	row := 2
	for _, day := range report.Days {
		var dailyTargets = struct{ Sessions, Sets, Breaths int }{}
		if p, ok := compliance.PrescriptionForDay(report.Prescriptions, day.Date); ok {
			t := compliance.Rollup(p)
			dailyTargets.Sessions, dailyTargets.Sets, dailyTargets.Breaths = t.Sessions, t.Sets, t.Breaths
		}
		values := []any{
			day.Date,
			day.ActSessions,
			day.Sets,
			day.Breaths,
			dailyTargets.Sessions,
			dailyTargets.Sets,
			dailyTargets.Breaths,
		}
		if err := writeRow(f, sheetName, row, values); err != nil {
			f.Close()
			return nil, err
		}
		row++
	}

	// 合计行
	totals := []any{
		"Total",
		report.Actual.Sessions,
		report.Actual.Sets,
		report.Actual.Breaths,
		report.Targets.Sessions,
		report.Targets.Sets,
		report.Targets.Breaths,
	}
	if err := writeRow(f, sheetName, row, totals); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheetName string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("failed to set cell value %s: %w", cell, err)
		}
	}
	return nil
}
