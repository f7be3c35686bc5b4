package diagnostics

import (
	"fmt"
	"strings"
)

// LanguageChinese is the default response language.
const LanguageChinese = "zh-CN"

func chinese(language string) bool {
	return language == "" || strings.HasPrefix(strings.ToLower(language), "zh")
}

func analysisPrompt(language, fleet string) string {
	if chinese(language) {
		return `你是一名物联网系统架构师。请分析以下设备群并提供：
1. 整体运行状况的总结。
2. 针对有问题的设备的具体维护建议。
3. 基于当前状态（如电池电量低、节点离线）的潜在风险分析。

请务必使用简体中文回答。

当前设备群数据：
` + fleet
	}
	return `You are an IoT systems architect. Analyze the following device fleet and provide:
1. A summary of the overall operating condition.
2. Concrete maintenance recommendations for devices with problems.
3. An analysis of potential risks based on the current state (such as low battery or offline nodes).

Answer in ` + language + `.

Current fleet data:
` + fleet
}

func configurationPrompt(language, deviceType, goal string) string {
	if chinese(language) {
		return fmt.Sprintf("请为一台 %s 物联网设备提供实现以下目标的最优配置参数：%s。请以 JSON 对象形式返回键值对，描述请使用中文。", deviceType, goal)
	}
	return fmt.Sprintf("Provide the optimal configuration parameters for a %s IoT device to achieve the following goal: %s. Return them as key/value pairs in a JSON object, with descriptions in %s.", deviceType, goal, language)
}

type schema map[string]interface{}

// reportSchema constrains the analysis response shape.
func reportSchema(language string) schema {
	score, action, priority := "系统健康评分 (0-100)", "建议执行的操作内容（中文）", "优先级：高、中、或低"
	summary := "中文总结报告"
	if !chinese(language) {
		score, action, priority = "System health score (0-100)", "Recommended action", "Priority: high, medium or low"
		summary = "Summary report"
	}

	return schema{
		"type": "OBJECT",
		"properties": schema{
			"healthScore": schema{"type": "NUMBER", "description": score},
			"summary":     schema{"type": "STRING", "description": summary},
			"recommendations": schema{
				"type": "ARRAY",
				"items": schema{
					"type": "OBJECT",
					"properties": schema{
						"deviceId": schema{"type": "STRING"},
						"action":   schema{"type": "STRING", "description": action},
						"priority": schema{"type": "STRING", "description": priority},
					},
					"required": []string{"deviceId", "action", "priority"},
				},
			},
		},
		"required": []string{"healthScore", "summary", "recommendations"},
	}
}
