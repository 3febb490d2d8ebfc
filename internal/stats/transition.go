package stats

// Transition 标识一次成交相对当前持仓的转变类型，共八种。
// 用独立的纯函数判定，避免把分支表散落在副作用代码里。
type Transition int

const (
	TransitionOpen         Transition = iota // 空仓开仓（多空均可）
	TransitionAddLong                        // 多头加仓
	TransitionPartialExit                    // 多头部分平仓
	TransitionFullExit                       // 多头全平，交易完成
	TransitionFlipShort                      // 多翻空，平多即完成一笔交易
	TransitionAddShort                       // 空头加仓
	TransitionPartialCover                   // 空头部分回补
	TransitionFullCover                      // 空头全回补，交易完成
	TransitionFlipLong                       // 空翻多，平空即完成一笔交易
)

func (tr Transition) String() string {
	switch tr {
	case TransitionOpen:
		return "open"
	case TransitionAddLong:
		return "add_long"
	case TransitionPartialExit:
		return "partial_exit"
	case TransitionFullExit:
		return "full_exit"
	case TransitionFlipShort:
		return "flip_short"
	case TransitionAddShort:
		return "add_short"
	case TransitionPartialCover:
		return "partial_cover"
	case TransitionFullCover:
		return "full_cover"
	case TransitionFlipLong:
		return "flip_long"
	default:
		return "unknown"
	}
}

// Completes 返回该转变是否产生一笔完整交易（持仓恰好归零，
// 翻转场景在平掉旧仓的那一腿之后归零）。
func (tr Transition) Completes() bool {
	switch tr {
	case TransitionFullExit, TransitionFullCover, TransitionFlipShort, TransitionFlipLong:
		return true
	default:
		return false
	}
}

// Classify 根据当前净持仓与本次成交的带符号数量判定转变类型。
// delta 不允许为 0（由调用方保证）。
func Classify(currentShares, delta int) Transition {
	newShares := currentShares + delta
	switch {
	case currentShares > 0:
		switch {
		case delta > 0:
			return TransitionAddLong
		case newShares > 0:
			return TransitionPartialExit
		case newShares == 0:
			return TransitionFullExit
		default:
			return TransitionFlipShort
		}
	case currentShares < 0:
		switch {
		case delta < 0:
			return TransitionAddShort
		case newShares < 0:
			return TransitionPartialCover
		case newShares == 0:
			return TransitionFullCover
		default:
			return TransitionFlipLong
		}
	default:
		return TransitionOpen
	}
}
