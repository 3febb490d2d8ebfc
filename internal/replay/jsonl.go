package replay

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tradestat/internal/market"
	symbolpkg "tradestat/internal/pkg/symbol"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

//go:embed fill_schema.json
var fillSchemaJSON []byte

// JSONLSource 读取目录下 <SYMBOL>.jsonl 格式的成交导出文件，
// 每行一条记录，逐行通过 JSON Schema 校验后转换为订单事件。
// 交易所导出的价格/手续费常以字符串给出，统一经 decimal 解析。
type JSONLSource struct {
	root   string
	schema *jsonschema.Schema
}

func NewJSONLSource(root string) (*JSONLSource, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("jsonl 目录不能为空")
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("fill_schema.json", bytes.NewReader(fillSchemaJSON)); err != nil {
		return nil, fmt.Errorf("加载 fill schema 失败: %w", err)
	}
	schema, err := compiler.Compile("fill_schema.json")
	if err != nil {
		return nil, fmt.Errorf("编译 fill schema 失败: %w", err)
	}
	return &JSONLSource{root: root, schema: schema}, nil
}

func (s *JSONLSource) Name() string { return "jsonl" }

// FilePath 返回某 symbol 对应的数据文件路径。
func (s *JSONLSource) FilePath(symbol string) string {
	return filepath.Join(s.root, symbolpkg.Normalize(symbol)+".jsonl")
}

func (s *JSONLSource) Fetch(ctx context.Context, req FetchRequest) ([]market.OrderEvent, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}
	path := s.FilePath(req.Symbol)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开成交文件失败: %w", err)
	}
	defer f.Close()

	symbol := symbolpkg.Normalize(req.Symbol)
	var out []market.OrderEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		ev, err := s.parseLine(symbol, line)
		if err != nil {
			return nil, fmt.Errorf("%s 第 %d 行: %w", filepath.Base(path), lineNo, err)
		}
		ts := ev.Execution.Time.UnixMilli()
		if req.Start > 0 && ts < req.Start {
			continue
		}
		if req.End > 0 && ts > req.End {
			continue
		}
		out = append(out, ev)
		if req.Limit > 0 && len(out) >= req.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *JSONLSource) parseLine(symbol string, line []byte) (market.OrderEvent, error) {
	if !gjson.ValidBytes(line) {
		return market.OrderEvent{}, fmt.Errorf("json 格式无效")
	}
	var doc any
	if err := json.Unmarshal(line, &doc); err != nil {
		return market.OrderEvent{}, err
	}
	if err := s.schema.Validate(doc); err != nil {
		return market.OrderEvent{}, fmt.Errorf("schema 校验失败: %w", err)
	}

	record := gjson.ParseBytes(line)
	price, err := parseNumber(record.Get("price"))
	if err != nil {
		return market.OrderEvent{}, fmt.Errorf("price 无效: %w", err)
	}
	commission := 0.0
	if c := record.Get("commission"); c.Exists() {
		commission, err = parseNumber(c)
		if err != nil {
			return market.OrderEvent{}, fmt.Errorf("commission 无效: %w", err)
		}
	}
	action, err := market.ParseAction(record.Get("action").String())
	if err != nil {
		return market.OrderEvent{}, err
	}
	return market.OrderEvent{
		Symbol: symbol,
		Status: strings.ToLower(record.Get("status").String()),
		Action: action,
		Execution: market.Execution{
			Price:      price,
			Quantity:   int(record.Get("quantity").Int()),
			Commission: commission,
			Time:       time.UnixMilli(record.Get("time").Int()),
		},
	}, nil
}

// parseNumber 兼容数值与字符串两种写法。
func parseNumber(res gjson.Result) (float64, error) {
	if res.Type == gjson.String {
		d, err := decimal.NewFromString(strings.TrimSpace(res.Str))
		if err != nil {
			return 0, err
		}
		return d.InexactFloat64(), nil
	}
	return res.Float(), nil
}
