package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"tasklist-backend/internal/aiclient"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const fortuneMaxTokens = 800

type FortuneHandler interface {
	Generate(c *gin.Context)
}

type fortuneHandler struct {
	ai  *aiclient.Client
	log *logrus.Logger
}

func NewFortuneHandler(ai *aiclient.Client, log *logrus.Logger) FortuneHandler {
	return &fortuneHandler{ai: ai, log: log}
}

type FortuneRequest struct {
	FortuneNumber int `json:"fortuneNumber"`
}

// FortuneAdvice is one labelled guidance line of a fortune.
type FortuneAdvice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Fortune is a complete drawn lot.
type Fortune struct {
	Type           string          `json:"type"`
	TypeText       string          `json:"typeText"`
	Poem           string          `json:"poem"`
	Interpretation string          `json:"interpretation"`
	Advice         []FortuneAdvice `json:"advice"`
}

// Generate handles POST /api/fortune/generate. The same lot number always
// produces the same offline fortune, so repeat draws are stable.
func (h *fortuneHandler) Generate(c *gin.Context) {
	var req FortuneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "签号必须在 1-100 之间"})
		return
	}

	if req.FortuneNumber < 1 || req.FortuneNumber > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "签号必须在 1-100 之间"})
		return
	}

	fortune := h.generateWithAI(c, req.FortuneNumber)
	if fortune == nil {
		fortune = fallbackFortune(req.FortuneNumber)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    fortune,
	})
}

func (h *fortuneHandler) generateWithAI(c *gin.Context, number int) *Fortune {
	if !h.ai.Enabled() {
		return nil
	}

	content, err := h.ai.Complete(c.Request.Context(),
		"你是一位精通中国传统占卜文化的大师，擅长解读灵签。",
		buildFortunePrompt(number), 0.8, fortuneMaxTokens)
	if err != nil {
		h.log.Warnf("Fortune generation failed, using fallback: %v", err)
		return nil
	}

	var fortune Fortune
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &fortune); err != nil {
		h.log.Warnf("Fortune response was not valid JSON, using fallback: %v", err)
		return nil
	}
	if fortune.Poem == "" || fortune.Interpretation == "" {
		return nil
	}
	return &fortune
}

func buildFortunePrompt(number int) string {
	return fmt.Sprintf(`你是一位精通中国传统文化的占卜大师。请为第 %d 签生成一支完整的灵签。

要求：
1. 使用繁体中文
2. 签诗：四句七言诗，押韵，意境优美
3. 签型：从"上上籤"、"上籤"、"中籤"、"中下籤"、"下籤"中选择一个
4. 解签：100-150字，解释签诗含义和运势
5. 指引：分别给出事业、财运、感情、健康四个方面的建议，每条10-15字

请以JSON格式返回，格式如下：
{
  "type": "great/good/medium/fair/poor",
  "typeText": "上上籤/上籤/中籤/中下籤/下籤",
  "poem": "签诗四句，用，和。分隔",
  "interpretation": "解签内容",
  "advice": [
    {"label": "事業", "value": "建议内容"},
    {"label": "財運", "value": "建议内容"},
    {"label": "感情", "value": "建议内容"},
    {"label": "健康", "value": "建议内容"}
  ]
}`, number)
}

var fortuneTypes = []struct {
	kind string
	text string
}{
	{"great", "上上籤"},
	{"good", "上籤"},
	{"medium", "中籤"},
	{"fair", "中下籤"},
	{"poor", "下籤"},
}

var fortunePoems = []string{
	"春來花自開，福至心自寬，誠心祈善願，吉慶自然來。",
	"雲開見月明，守得花開時，耐心待時機，好運必相隨。",
	"登高望遠處，前程似錦繡，勤勉不懈怠，功名可期待。",
	"水到渠成時，莫急莫躁進，靜待良機至，萬事皆順遂。",
	"柳暗花明處，轉機在眼前，堅持初心志，終見彩虹現。",
	"鳳凰展翅飛，龍躍九重天，時來運轉至，富貴自綿延。",
	"梅花香自苦，寶劍鋒從磨，歷經風雨後，彩虹映山河。",
	"明月照前程，清風送吉祥，心誠則靈驗，萬事得安康。",
	"桃李滿天下，春風化雨來，德行積善果，福祿自然開。",
	"江海納百川，山高人為峰，胸懷天下志，功成名就中。",
}

var fortuneInterpretations = []string{
	"此籤示意運勢漸佳，諸事順遂。當下雖有小阻，但只要保持誠心與耐心，終能撥雲見日，迎來轉機。貴人相助，事業有成，財運亨通，感情美滿。",
	"籤示前路光明，貴人相助。凡事宜積極進取，但需謹慎行事，切勿操之過急，方能水到渠成。守正待時，必有所獲。",
	"此籤暗示需要等待時機，不宜急進。當前雖有困頓，但守得雲開見月明，耐心等待必有收穫。靜心修為，厚積薄發。",
	"籤文提醒需要堅持與努力，機會就在不遠處。只要不放棄，持之以恆，定能達成所願。天道酬勤，功不唐捐。",
	"此籤預示轉機將至，困境即將過去。保持樂觀心態，積極面對，好運即將降臨。柳暗花明，否極泰來。",
	"上上大吉之籤，諸事皆宜。當前運勢極佳，正是大展宏圖之時。把握機遇，勇往直前，必能成就一番事業。",
	"此籤示意需經磨練方能成功。雖然過程艱辛，但只要堅持不懈，終將苦盡甘來，收穫豐碩果實。",
	"籤文吉祥，心誠則靈。只要保持善良之心，誠實待人，自然會得到上天眷顧，萬事如意。",
	"此籤預示德行重要，積善之家必有餘慶。多行善事，廣結善緣，福報自然降臨，子孫昌盛。",
	"大志之籤，適合有遠大抱負之人。胸懷天下，志存高遠，只要腳踏實地，必能成就大業。",
}

var fortuneAdviceOptions = [][]FortuneAdvice{
	{
		{"事業", "貴人相助，宜把握機會"},
		{"財運", "正財穩定，偏財需謹慎"},
		{"感情", "真誠相待，情緣可期"},
		{"健康", "注意休息，保持平和"},
	},
	{
		{"事業", "穩中求進，切勿冒進"},
		{"財運", "量入為出，理財有道"},
		{"感情", "耐心等待，緣分自來"},
		{"健康", "規律作息，身心安康"},
	},
	{
		{"事業", "積極進取，勇於創新"},
		{"財運", "投資有道，財源廣進"},
		{"感情", "主動出擊，把握良機"},
		{"健康", "適度運動，精神飽滿"},
	},
	{
		{"事業", "厚積薄發，靜待時機"},
		{"財運", "守財為上，勿貪小利"},
		{"感情", "以誠待人，終成眷屬"},
		{"健康", "調養身心，勿過勞累"},
	},
	{
		{"事業", "轉機將至，莫要放棄"},
		{"財運", "先苦後甘，財運漸旺"},
		{"感情", "破鏡重圓，重拾舊緣"},
		{"健康", "病痛漸癒，注意調理"},
	},
}

// fallbackFortune selects every part of the fortune by lot number, so a
// given number is always answered with the same text.
func fallbackFortune(number int) *Fortune {
	selected := fortuneTypes[number%len(fortuneTypes)]
	return &Fortune{
		Type:           selected.kind,
		TypeText:       selected.text,
		Poem:           fortunePoems[number%len(fortunePoems)],
		Interpretation: fortuneInterpretations[number%len(fortuneInterpretations)],
		Advice:         fortuneAdviceOptions[number%len(fortuneAdviceOptions)],
	}
}
