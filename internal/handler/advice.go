package handler

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strings"

	"tasklist-backend/internal/aiclient"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	adviceMaxItemRunes = 20
	adviceMaxTokens    = 120
	adviceCount        = 3
)

type AdviceHandler interface {
	GenerateBMIAdvice(c *gin.Context)
}

type adviceHandler struct {
	ai  *aiclient.Client
	log *logrus.Logger
}

func NewAdviceHandler(ai *aiclient.Client, log *logrus.Logger) AdviceHandler {
	return &adviceHandler{ai: ai, log: log}
}

type BMIAdviceRequest struct {
	Age    int     `json:"age"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
	BMI    float64 `json:"bmi"`
}

// GenerateBMIAdvice handles POST /api/bmi/advice. The generation API is
// best-effort; a band-keyed offline fallback always produces three items.
func (h *adviceHandler) GenerateBMIAdvice(c *gin.Context) {
	var req BMIAdviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "参数格式错误"})
		return
	}

	if req.Age <= 0 || req.Height <= 0 || req.Weight <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "参数缺失"})
		return
	}

	bmi := req.BMI
	if bmi <= 0 {
		heightM := req.Height / 100
		bmi = req.Weight / (heightM * heightM)
	}
	bmi = math.Round(bmi*10) / 10

	fallback := fallbackAdvice(bmi)
	advice := fallback
	if h.ai.Enabled() {
		prompt := buildBMIPrompt(req.Age, req.Height, req.Weight, bmi)
		content, err := h.ai.Complete(c.Request.Context(),
			"你是一位简洁的健康管理助手，输出必须是纯 JSON。", prompt, 0.5, adviceMaxTokens)
		if err != nil {
			h.log.Warnf("BMI advice generation failed, using fallback: %v", err)
		} else {
			advice = extractAdvice(content, fallback)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"advice": normalizeAdvice(advice, fallback)},
	})
}

func buildBMIPrompt(age int, height, weight, bmi float64) string {
	return "你是一位健康管理助手。根据以下数据给出3条最重要的健康建议，聚焦饮食、运动、作息。\n" +
		fmt.Sprintf("年龄: %d 岁，身高: %.0f cm，体重: %.0f kg，BMI: %.1f。\n", age, height, weight, bmi) +
		"要求：\n" +
		"1) 只返回严格 JSON：{\"advice\":[\"...\",\"...\",\"...\"]}\n" +
		"2) 每条建议不超过20个中文字符，总字符数不超过80\n" +
		"3) 不要输出任何多余文本或 Markdown"
}

// fallbackAdvice keys three advice strings off the BMI band.
func fallbackAdvice(bmi float64) []string {
	switch {
	case bmi < 18.5:
		return []string{"提高优质蛋白摄入", "每周 2-3 次力量训练", "规律作息保持恢复"}
	case bmi <= 23.9:
		return []string{"保持均衡饮食", "每周 150 分钟运动", "定期记录体重变化"}
	case bmi <= 27.9:
		return []string{"减少高糖高油食物", "增加日常步行", "每周 2-3 次有氧"}
	default:
		return []string{"控制总热量摄入", "循序渐进提高活动量", "必要时咨询专业意见"}
	}
}

// extractAdvice pulls an advice list out of whatever the model returned:
// fenced JSON, bare JSON, or loose prose split on line breaks and Chinese
// punctuation.
func extractAdvice(content string, fallback []string) []string {
	cleaned := stripCodeFences(content)
	if cleaned == "" {
		return fallback
	}

	var wrapped struct {
		Advice []string `json:"advice"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapped); err == nil && len(wrapped.Advice) > 0 {
		return wrapped.Advice
	}

	var bare []string
	if err := json.Unmarshal([]byte(cleaned), &bare); err == nil && len(bare) > 0 {
		return bare
	}

	return splitAdviceText(cleaned)
}

var (
	adviceSplitRe  = regexp.MustCompile(`[\r\n]+`)
	advicePunctRe  = regexp.MustCompile(`[。；;]+`)
	advicePrefixRe = regexp.MustCompile(`(?i)^\s*"?advice"?\s*[:=]\s*`)
)

func splitAdviceText(text string) []string {
	parts := adviceSplitRe.Split(text, -1)
	if len(parts) == 1 {
		parts = advicePunctRe.Split(text, -1)
	}

	items := make([]string, 0, len(parts))
	for _, part := range parts {
		cleaned := advicePrefixRe.ReplaceAllString(part, "")
		cleaned = strings.Trim(cleaned, " -•0123456789.、)[]{}\"'`")
		if cleaned != "" {
			items = append(items, cleaned)
		}
	}
	return items
}

// normalizeAdvice clamps each item to the display width and pads from the
// fallback so the response always carries exactly three entries.
func normalizeAdvice(items, fallback []string) []string {
	cleaned := make([]string, 0, adviceCount)
	for _, item := range items {
		trimmed := strings.TrimSpace(strings.Trim(item, "[]{}\"'`"))
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, clampRunes(trimmed, adviceMaxItemRunes))
		if len(cleaned) == adviceCount {
			break
		}
	}

	for _, item := range fallback {
		if len(cleaned) == adviceCount {
			break
		}
		clamped := clampRunes(item, adviceMaxItemRunes)
		if !containsString(cleaned, clamped) {
			cleaned = append(cleaned, clamped)
		}
	}
	return cleaned
}

func clampRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

// stripCodeFences removes a surrounding markdown code fence, if any.
func stripCodeFences(content string) string {
	cleaned := strings.TrimSpace(content)
	if idx := strings.Index(cleaned, "```json"); idx >= 0 {
		cleaned = cleaned[idx+len("```json"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
	} else if idx := strings.Index(cleaned, "```"); idx >= 0 {
		cleaned = cleaned[idx+len("```"):]
		if end := strings.Index(cleaned, "```"); end >= 0 {
			cleaned = cleaned[:end]
		}
	}
	return strings.TrimSpace(cleaned)
}
