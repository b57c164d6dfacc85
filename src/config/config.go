package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix 环境变量前缀，例如 DATAINSIGHT_INPUT_PATH
const EnvPrefix = "DATAINSIGHT"

// 数据配置中列映射的键
const (
	ColYear     = "year"     // 年份列
	ColCategory = "platform" // 分组(平台)列
	ColGenre    = "genre"    // 类别频次列
	ColValue    = "value"    // 主数值列(全球销量)
	ColX        = "x"        // 散点图X轴列
	ColY        = "y"        // 散点图Y轴列
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Input struct {
		Path      string `json:"path"`                              // 输入文件路径
		SheetName string `json:"sheet_name" envconfig:"sheet_name"` // xlsx工作表名称，为空取第一个
		Encoding  string `json:"encoding"`                          // 文件字符集
		Delimiter string `json:"delimiter"`                         // 分隔符
	} `json:"input"`

	Output struct {
		ChartDir string `json:"chart_dir" envconfig:"chart_dir"` // 图表输出目录
		Workbook string `json:"workbook"`                        // 导出的xlsx路径，为空不导出
	} `json:"output"`

	DataDir       string   `json:"data_dir" envconfig:"data_dir"`               // 附件保存目录
	LogName       string   `json:"log_name" envconfig:"log_name"`               // 日志文件
	LogMaxSize    int      `json:"log_max_size" envconfig:"log_max_size"`       // 单个日志文件大小(MB)
	LogMaxBackups int      `json:"log_max_backups" envconfig:"log_max_backups"` // 保留的旧日志数量
	LogConsole    bool     `json:"log_console" envconfig:"log_console"`         // 日志是否同时输出到控制台
	Schedule      Duration `json:"schedule"`                                    // 定时执行间隔，0表示不启用
	HTTPAddr      string   `json:"http_addr" envconfig:"http_addr"`             // 日志/图表服务地址，为空不启动

	Email struct {
		Enabled       bool     `json:"enabled"`
		Server        string   `json:"server"`                                    // 邮件服务器地址
		Username      string   `json:"username"`                                  // 邮箱用户名
		Password      string   `json:"password"`                                  // 邮箱密码
		TargetSubject string   `json:"target_subject" envconfig:"target_subject"` // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval" envconfig:"check_interval"` // 检查新邮件的间隔时间
	} `json:"email"`

	SendEmail struct {
		Enabled  bool     `json:"enabled"`
		Server   string   `json:"server"`   // SMTP服务器地址
		Username string   `json:"username"` // 发件人
		Password string   `json:"password"` // 发件密码/授权码
		To       []string `json:"to"`       // 收件人
		Subject  string   `json:"subject"`  // 报表邮件主题
	} `json:"send_email" envconfig:"send_email"`

	DingTalk struct {
		Enabled bool   `json:"enabled"`
		Webhook string `json:"webhook"` // 群机器人webhook地址
		Secret  string `json:"secret"`  // 加签密钥
	} `json:"dingtalk"`
}

// DataConfig 数据列映射及图表参数
type DataConfig struct {
	Columns     map[string]string `json:"columns"`
	TopN        int               `json:"top_n"`
	HistBins    int               `json:"hist_bins"`
	PreviewRows int               `json:"preview_rows"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
)

// LoadConfig 只加载一次配置，之后返回同一实例
func LoadConfig(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = loadConfigs(jsonFolder, jsonFile, dataJsonFile)
	})
	return instance, dataConfigInstance, err
}

func loadConfigs(jsonFolder, jsonFile, dataJsonFile string) (*Config, *DataConfig, error) {
	configFile := filepath.Join(jsonFolder, jsonFile)
	dataConfigFile := filepath.Join(jsonFolder, dataJsonFile)

	configData, err := readFile(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	dataConfigData, err := readFile(dataConfigFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取数据配置文件失败: %w", err)
	}

	cfgChan := make(chan *Config, 1)
	dcfgChan := make(chan *DataConfig, 1)
	errChan := make(chan error, 2)

	go parseConfig(configData, cfgChan, errChan)
	go parseDataConfig(dataConfigData, dcfgChan, errChan)

	cfg, dcfg, err := waitForResults(cfgChan, dcfgChan, errChan)
	if err != nil {
		return nil, nil, err
	}

	// 环境变量覆盖文件配置
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, nil, fmt.Errorf("解析环境变量失败: %w", err)
	}

	return cfg, dcfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

func parseConfig(data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- cfg
}

func parseDataConfig(data []byte, resultChan chan<- *DataConfig, errChan chan<- error) {
	dcfg := DefaultData()
	// 先清空默认列映射，再用文件中的覆盖，未给出的列保留默认值
	defaults := dcfg.Columns
	dcfg.Columns = nil
	if err := json.Unmarshal(data, dcfg); err != nil {
		errChan <- fmt.Errorf("解析DataConfig失败: %w", err)
		return
	}
	if dcfg.Columns == nil {
		dcfg.Columns = make(map[string]string, len(defaults))
	}
	for k, v := range defaults {
		if _, ok := dcfg.Columns[k]; !ok {
			dcfg.Columns[k] = v
		}
	}
	resultChan <- dcfg
}

func waitForResults(
	cfgChan <-chan *Config,
	dcfgChan <-chan *DataConfig,
	errChan <-chan error,
) (*Config, *DataConfig, error) {
	var (
		cfg    *Config
		dcfg   *DataConfig
		errors []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case d := <-dcfgChan:
			dcfg = d
		case err := <-errChan:
			errors = append(errors, err)
		}
	}

	if len(errors) > 0 {
		return nil, nil, combineErrors(errors)
	}

	if cfg == nil || dcfg == nil {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, dcfg, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Default 返回带默认值的配置，配置文件中的字段会覆盖这些值
func Default() *Config {
	cfg := &Config{}
	cfg.Input.Path = "vgsales.csv"
	cfg.Input.Encoding = "utf-8"
	cfg.Input.Delimiter = ","
	cfg.Output.ChartDir = "charts"
	cfg.DataDir = "data"
	cfg.LogName = "app.log"
	cfg.LogMaxSize = 10
	cfg.LogMaxBackups = 3
	cfg.LogConsole = true
	cfg.Email.TargetSubject = "vgsales"
	cfg.Email.CheckInterval = Duration(5 * time.Minute)
	cfg.SendEmail.Subject = "Video game sales report"
	return cfg
}

// DefaultData 返回vgsales数据集的默认列映射
func DefaultData() *DataConfig {
	return &DataConfig{
		Columns: map[string]string{
			ColYear:     "Year",
			ColCategory: "Platform",
			ColGenre:    "Genre",
			ColValue:    "Global_Sales",
			ColX:        "NA_Sales",
			ColY:        "EU_Sales",
		},
		TopN:        10,
		HistBins:    50,
		PreviewRows: 5,
	}
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.Decode(s)
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Decode 实现envconfig.Decoder接口
func (d *Duration) Decode(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (dc *DataConfig) GetColumn(key string) string {
	mu.RLock()
	defer mu.RUnlock()
	return dc.Columns[key]
}

func (dc *DataConfig) SetColumn(key, colName string) {
	mu.Lock()
	defer mu.Unlock()
	dc.Columns[key] = colName
}
