package config

// Config 组件运行所需的完整配置（可选）。
// 功能：承载远端生成服务地址、轮询与快照节奏、提交校验字段与数据库配置。
// 注意：组件本身不创建 HTTP 服务；持久化仅在注入 gormstore 时用到 Mysql。
type Config struct {
	Remote struct {
		BaseURL        string `yaml:"base_url" validate:"required,url"`
		TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0"` // 单次请求上限，0 用默认
	} `yaml:"remote"`

	Poll struct {
		IntervalMS int `yaml:"interval_ms" validate:"gte=0"` // 轮询周期，0 用默认 1500
	} `yaml:"poll"`

	Snapshot struct {
		DebounceMS int `yaml:"debounce_ms" validate:"gte=0"` // 快照去抖静默期，0 用默认 500
	} `yaml:"snapshot"`

	RequiredFields []string `yaml:"required_fields"` // 提交校验字段，空用默认 image_url

	Mysql struct {
		DataSource string `yaml:"data_source"` // 形如 user:pass@tcp(127.0.0.1:3306)/db?charset=utf8mb4&parseTime=true&loc=Local
	} `yaml:"mysql"`
}
