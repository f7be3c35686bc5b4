package models

import "time"

func mustTime(layout, value string) time.Time {
	t, err := time.Parse(layout, value)
	if err != nil {
		panic(err)
	}
	return t
}

func ts(value string) Timestamp { return NewTimestamp(mustTime(TimestampLayout, value)) }

func date(value string) Date { return NewDate(mustTime(DateLayout, value)) }

// DefaultDevices returns the built-in device set used when nothing is stored.
func DefaultDevices() []Device {
	return []Device{
		{
			ID:          "DEV-001",
			Name:        "北厅温度传感器",
			Type:        DeviceTypeSensor,
			Status:      StatusOnline,
			Customer:    "阿里巴巴集团",
			LastActive:  ts("2023-10-27 14:30:00"),
			CreatedAt:   ts("2023-10-01 08:00:00"),
			Labels:      []string{"环境监控", "北厅"},
			TemplateID:  "TPL-001",
			Battery:     floatPtr(85),
			Temperature: floatPtr(24.5),
			Credential:  AccessToken{Token: "akz178nboyv4xinrvsbd"},
			Location:    &GeoLocation{Latitude: 39.9042, Longitude: 116.4074, Name: "北京阿里巴巴总部"},
		},
		{
			ID:          "DEV-002",
			Name:        "智能空调控制器",
			Type:        DeviceTypeActuator,
			Status:      StatusOnline,
			Customer:    "华为技术",
			LastActive:  ts("2023-10-27 14:35:00"),
			CreatedAt:   ts("2023-10-05 10:20:00"),
			IsPublic:    true,
			IsGateway:   true,
			Labels:      []string{"能耗管理", "智能楼宇"},
			Consumption: floatPtr(12.4),
			Credential: MQTTBasic{
				ClientID: "gateway-002-main",
				Username: "admin_iot",
				Password: "securepassword123",
			},
			Location: &GeoLocation{Latitude: 22.5431, Longitude: 114.0579, Name: "深圳华为坂田基地"},
		},
		{
			ID:         "DEV-003",
			Name:       "正门安全监控",
			Type:       DeviceTypeCamera,
			Status:     StatusWarning,
			Customer:   "腾讯科技",
			LastActive: ts("2023-10-27 14:20:00"),
			CreatedAt:  ts("2023-10-10 16:45:00"),
			Labels:     []string{"安防", "视频流"},
			Battery:    floatPtr(15),
			Credential: X509Certificate{PEM: "-----BEGIN CERTIFICATE-----\n" +
				"MIIC/zCCAeegAwIBAgIJAJ6G9vP8N8+SMA0GCSqGSIb3DQEBCwUAMBMxETAPBgNV\n" +
				"BAMMCFNNQVJUTElOSzAeFw0yMzEwMDEwODAwMDBaFw0zMzEwMDEwODAwMDBaMBMx\n" +
				"ETAPBgNVBAMMCFNNQVJUTElOSzCCASIwDQYJKoZIhvcNAQEBBQADggEPADCCAQoC\n" +
				"ggEBAMV8z...\n-----END CERTIFICATE-----"},
			Location: &GeoLocation{Latitude: 22.5407, Longitude: 113.9344, Name: "深圳腾讯滨海大厦"},
		},
	}
}

// DefaultTemplates returns the built-in template set used when nothing is
// stored.
func DefaultTemplates() []DeviceTemplate {
	return []DeviceTemplate{
		{
			ID:                   "TPL-001",
			Name:                 "标准环境传感器模板",
			RuleChain:            "RC-ENV-STANDARD",
			Description:          "适用于温湿度计、气压计等标准环境监测设备",
			Transport:            TransportMQTT,
			ProvisioningStrategy: ProvisioningAllowCreate,
			CreatedAt:            date("2023-09-01"),
			IsDefault:            true,
		},
		{
			ID:                   "TPL-002",
			Name:                 "工业级网关模板",
			RuleChain:            "RC-GW-INDUSTRIAL",
			Description:          "支持多协议转换与边缘计算的网关专用模板",
			Transport:            TransportCoAP,
			ProvisioningStrategy: ProvisioningCheckPreprovisioned,
			CreatedAt:            date("2023-09-15"),
		},
	}
}
