package submission

import (
	"strconv"
	"strings"

	"github.com/mengeric/batchgen-go/rowstore"
)

// 稳定键推导链：显式行号 > 业务标识（SKU）> 选择内序号。
// 构建提交时求值一次并冻结进本次运行，之后对无关行的编辑不会影响在途运行的键。

type keyStrategy func(r rowstore.Record, ordinal int) (string, bool)

var keyChain = []keyStrategy{
	func(r rowstore.Record, _ int) (string, bool) {
		v := strings.TrimSpace(r.Input["row_index"])
		return v, v != ""
	},
	func(r rowstore.Record, _ int) (string, bool) {
		v := strings.TrimSpace(r.Input["sku"])
		return v, v != ""
	},
	func(_ rowstore.Record, ordinal int) (string, bool) {
		return "pos-" + strconv.Itoa(ordinal), true
	},
}

// DeriveKey 按推导链为一行计算稳定键。
// 参数：ordinal 为该行在当前选择中的序号（从 0 起），仅作最后兜底。
func DeriveKey(r rowstore.Record, ordinal int) string {
	for _, s := range keyChain {
		if k, ok := s(r, ordinal); ok {
			return k
		}
	}
	return "pos-" + strconv.Itoa(ordinal)
}
