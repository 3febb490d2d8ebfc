package report

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradestat/internal/logger"
	"tradestat/internal/run"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
	"github.com/shopspring/decimal"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorProfit        = "#34d399"
	colorLoss          = "#f87171"
	colorEquity        = "#3b82f6"

	chartWidthPx  = 1200
	chartHeightPx = 420
)

// Renderer 把一次回放的统计结果渲染为 HTML 报告，
// 开启快照时再经 headless chrome 截一张 PNG。
type Renderer struct {
	root     string
	snapshot bool
}

func NewRenderer(root string, snapshot bool) (*Renderer, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("报告输出目录不能为空")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Renderer{root: root, snapshot: snapshot}, nil
}

var _ run.Reporter = (*Renderer)(nil)

// Render 生成报告并返回 HTML 文件路径。
func (r *Renderer) Render(ctx context.Context, task run.Run) (string, error) {
	if task.Stats == nil {
		return "", fmt.Errorf("run %s 缺少统计结果", task.ID)
	}
	html, err := buildReportHTML(task)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(r.root, task.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	htmlPath := filepath.Join(dir, "report.html")
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return "", err
	}

	if r.snapshot {
		png, err := renderHTMLToPNG(ctx, html, chartWidthPx, chartHeightPx*3)
		if err != nil {
			// 没有可用的 chrome 时报告仍然成立。
			logger.Warnf("run %s 报告截图失败: %v", task.ID, err)
		} else if err := os.WriteFile(filepath.Join(dir, "report.png"), png, 0o644); err != nil {
			return "", err
		}
	}
	return htmlPath, nil
}

func buildReportHTML(task run.Run) ([]byte, error) {
	st := task.Stats
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("%s 交易统计报告", strings.ToUpper(task.Config.Symbol))

	if len(st.All) > 0 {
		page.AddCharts(
			buildEquityLine(task),
			buildProfitBar(st),
			buildReturnBar(st),
		)
	} else {
		// 没有闭合交易时仅输出摘要图。
		page.AddCharts(buildEquityLine(task))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func chartInit() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", chartHeightPx),
		BackgroundColor: colorBackground,
	}
}

func buildEquityLine(task run.Run) *charts.Line {
	st := task.Stats
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s 累计盈亏", strings.ToUpper(task.Config.Symbol)),
			Subtitle:      buildSubtitle(st),
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)

	xAxis := tradeAxis(len(st.All))
	data := make([]opts.LineData, len(st.All))
	cum := 0.0
	for i, p := range st.All {
		cum += p
		data[i] = opts.LineData{Value: round4(cum)}
	}
	line.SetXAxis(xAxis)
	line.AddSeries("累计盈亏", data, charts.WithLineStyleOpts(opts.LineStyle{Color: colorEquity, Width: 2}))
	return line
}

func buildProfitBar(st *run.Stats) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{Title: "单笔盈亏", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	data := make([]opts.BarData, len(st.All))
	for i, p := range st.All {
		color := colorLoss
		if p >= 0 {
			color = colorProfit
		}
		data[i] = opts.BarData{
			Value:     round4(p),
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.8)},
		}
	}
	bar.SetXAxis(tradeAxis(len(st.All)))
	bar.AddSeries("盈亏", data)
	return bar
}

func buildReturnBar(st *run.Stats) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(chartInit()),
		charts.WithTitleOpts(opts.Title{Title: "单笔收益率", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Color: colorTextSecondary}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	data := make([]opts.BarData, len(st.AllReturns))
	for i, v := range st.AllReturns {
		color := colorLoss
		if v >= 0 {
			color = colorProfit
		}
		data[i] = opts.BarData{
			Value:     round4(v),
			ItemStyle: &opts.ItemStyle{Color: color, Opacity: opts.Float(0.8)},
		}
	}
	bar.SetXAxis(tradeAxis(len(st.AllReturns)))
	bar.AddSeries("收益率", data)
	return bar
}

func buildSubtitle(st *run.Stats) string {
	winRate := decimal.NewFromFloat(st.WinRate * 100).Round(2)
	total := decimal.NewFromFloat(st.TotalProfit).Round(4)
	return fmt.Sprintf("交易 %d 笔 | 盈利 %d | 亏损 %d | 持平 %d | 胜率 %s%% | 净盈亏 %s",
		st.Trades, st.Profitable, st.Unprofitable, st.Even, winRate.String(), total.String())
}

func tradeAxis(n int) []string {
	x := make([]string, n)
	for i := range x {
		x[i] = fmt.Sprintf("#%d", i+1)
	}
	return x
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

// EnsureHeadlessAvailable 探测 headless chrome 是否可用，结果缓存。
func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int) ([]byte, error) {
	if err := EnsureHeadlessAvailable(ctx); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, 20*time.Second)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
