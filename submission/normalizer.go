package submission

import "sync"

// Normalizer 字段归一化函数：入参为原始值，返回提交用值。
type Normalizer func(value string) string

var (
	regMu       sync.RWMutex
	normalizers = map[string]Normalizer{}
)

// Register 为指定输入字段注册归一化器（如 image_url 的协议补全）。
// 传 nil 注销该字段的归一化器。
func Register(field string, n Normalizer) {
	regMu.Lock()
	defer regMu.Unlock()
	if n == nil {
		delete(normalizers, field)
		return
	}
	normalizers[field] = n
}

// Get 获取字段归一化器。
func Get(field string) (Normalizer, bool) {
	regMu.RLock()
	defer regMu.RUnlock()
	n, ok := normalizers[field]
	return n, ok
}
