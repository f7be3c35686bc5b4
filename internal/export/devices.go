package export

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/fleet-console/fleet-console/internal/models"
)

// DevicesSheet is the sheet the inventory is written to.
const DevicesSheet = "Devices"

// ContentType of the generated workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DeviceHeader is the header row of the inventory sheet.
var DeviceHeader = []string{
	"设备ID",
	"设备名称",
	"设备类型",
	"状态",
	"客户",
	"设备配置",
	"网关",
	"公开",
	"标签",
	"凭证类型",
	"纬度",
	"经度",
	"位置",
	"电量 (%)",
	"创建时间",
	"最后活动",
}

var columnWidths = []float64{12, 24, 10, 10, 18, 22, 8, 8, 24, 14, 12, 12, 24, 10, 20, 20}

// DevicesWorkbook renders devices as an xlsx workbook. Template ids are
// resolved against templates; dangling ids show the default template name.
func DevicesWorkbook(devices []models.Device, templates []models.DeviceTemplate) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(DevicesSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(DevicesSheet, "A1", &DeviceHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(DeviceHeader), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(DevicesSheet, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("set header style: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(DevicesSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	for i, d := range devices {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := deviceRow(d, templates)
		if err := f.SetSheetRow(DevicesSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write device %s: %w", d.ID, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func deviceRow(d models.Device, templates []models.DeviceTemplate) []interface{} {
	var lat, lng interface{}
	var place string
	if d.Location != nil {
		lat, lng, place = d.Location.Latitude, d.Location.Longitude, d.Location.Name
	}
	var battery interface{}
	if d.Battery != nil {
		battery = *d.Battery
	}

	return []interface{}{
		d.ID,
		d.Name,
		string(d.Type),
		string(d.Status),
		d.Customer,
		models.TemplateName(templates, d.TemplateID),
		yesNo(d.IsGateway),
		yesNo(d.IsPublic),
		strings.Join(d.Labels, ", "),
		string(d.CredentialType()),
		lat,
		lng,
		place,
		battery,
		d.CreatedAt.String(),
		d.LastActive.String(),
	}
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}
