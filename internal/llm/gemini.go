package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// factualTemperature 是事实性章节生成所使用的固定低温度。
const factualTemperature = 0.2

// Gemini 是一个用于与 Gemini API 交互的生成式模型客户端。
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini 创建一个新的 Gemini 客户端。
//
// 参数:
//
//	ctx: 上下文，用于控制客户端的生命周期。
//	model: 要使用的 Gemini 模型名称。
//	apiKey: Gemini API 密钥。
//
// 返回值:
//
//	*Gemini: 新创建的 Gemini 客户端实例。
//	error: 如果无法创建 GenAI 客户端，则返回错误。
func NewGemini(ctx context.Context, model, apiKey string) (*Gemini, error) {
	// 使用 API 密钥创建 GenAI 客户端。
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Generate 向 Gemini API 发送一次生成请求并返回纯文本结果，
// 实现 interfaces.LLM 接口。每个请求是独立的，不保留会话历史。
//
// 参数:
//
//	ctx: 上下文，用于控制请求的生命周期。
//	system: 系统指令，编码输出结构、引用规则等生成契约。
//	prompt: 用户提示词，包含检索到的上下文与问题。
//
// 返回值:
//
//	string: 生成的文本。
//	error: 如果请求失败或响应为空，则返回错误。
func (g *Gemini) Generate(ctx context.Context, system, prompt string) (string, error) {
	// 获取生成模型，并设置固定低温度以保证事实性输出的稳定性。
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(factualTemperature)
	if system != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(system)},
		}
	}

	// 发送生成请求。
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	// 从响应中提取第一个候选的文本部分。
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text), nil
			}
		}
	}

	return "", fmt.Errorf("gemini 响应为空或格式不符合预期")
}
