package notifier

import (
	"context"
	"fmt"
	"strings"

	"tradestat/internal/run"
)

// TextNotifier 是最小的文本推送接口，方便上层不依赖具体实现。
type TextNotifier interface {
	SendText(ctx context.Context, text string) error
}

// RunNotifier 把回放任务结果格式化为摘要并经 TextNotifier 推送。
type RunNotifier struct {
	sender TextNotifier
}

func NewRunNotifier(sender TextNotifier) *RunNotifier {
	return &RunNotifier{sender: sender}
}

var _ run.Notifier = (*RunNotifier)(nil)

func (n *RunNotifier) NotifyRun(ctx context.Context, r run.Run) error {
	if n == nil || n.sender == nil {
		return nil
	}
	return n.sender.SendText(ctx, FormatRunSummary(r))
}

// FormatRunSummary 生成 Markdown 格式的结果摘要。
func FormatRunSummary(r run.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*交易统计完成* `%s`\n", strings.ToUpper(r.Config.Symbol))
	fmt.Fprintf(&b, "任务: `%s`\n", r.ID)
	if r.Config.Label != "" {
		fmt.Fprintf(&b, "标签: %s\n", r.Config.Label)
	}
	st := r.Stats
	if st == nil {
		b.WriteString("无统计结果")
		return b.String()
	}
	fmt.Fprintf(&b, "成交 %d 笔，闭合交易 %d 笔\n", st.Fills, st.Trades)
	fmt.Fprintf(&b, "盈利 %d | 亏损 %d | 持平 %d\n", st.Profitable, st.Unprofitable, st.Even)
	fmt.Fprintf(&b, "胜率 %.2f%% | 净盈亏 %.4f", st.WinRate*100, st.TotalProfit)
	return b.String()
}
