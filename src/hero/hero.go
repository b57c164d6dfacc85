// hero.go
package hero

import (
	"fmt"
	"io"
	"math/rand"
)

// 通用常量
const (
	MaxPowerLevel     = 100 // 能力值上限
	RevealClearance   = 5   // 查看真实身份所需的最低权限
	LevelUpExperience = 100 // 升级所需经验
	LevelUpBonus      = 10  // 每次升级增加的能力值
)

// AccessDenied 权限不足时RevealIdentity的返回值
const AccessDenied = "Access Denied: Insufficient Clearance"

// Superhero 所有英雄的公共行为
type Superhero interface {
	Name() string
	PowerLevel() int
	RevealIdentity(clearance int) string
	// GainExperience 增加经验，升级时返回true
	GainExperience(amount int) bool
	Move() string
	SpecialAbility() string
}

// base 英雄的公共状态，真实身份只能通过RevealIdentity读取
type base struct {
	name           string
	secretIdentity string
	powerLevel     int
	health         int
	experience     int
}

func newBase(name, secretIdentity string, powerLevel int) base {
	return base{
		name:           name,
		secretIdentity: secretIdentity,
		powerLevel:     clamp(powerLevel, 0, MaxPowerLevel),
		health:         100,
	}
}

func (b *base) Name() string    { return b.name }
func (b *base) PowerLevel() int { return b.powerLevel }
func (b *base) Health() int     { return b.health }
func (b *base) Experience() int { return b.experience }

// RevealIdentity 权限不低于RevealClearance时返回真实身份
func (b *base) RevealIdentity(clearance int) string {
	if clearance >= RevealClearance {
		return b.secretIdentity
	}
	return AccessDenied
}

// GainExperience 经验达到LevelUpExperience时能力值+10(不超过上限)并清零经验
func (b *base) GainExperience(amount int) bool {
	b.experience += amount
	if b.experience < LevelUpExperience {
		return false
	}
	b.powerLevel = clamp(b.powerLevel+LevelUpBonus, 0, MaxPowerLevel)
	b.experience = 0
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FlyingHero 会飞的英雄
type FlyingHero struct {
	base
	FlightSpeed   int
	wingsDeployed bool
}

// NewFlyingHero 创建飞行英雄，能力值被限制在[0,100]
func NewFlyingHero(name, secretIdentity string, flightSpeed, powerLevel int) *FlyingHero {
	return &FlyingHero{base: newBase(name, secretIdentity, powerLevel), FlightSpeed: flightSpeed}
}

func (h *FlyingHero) Move() string {
	return fmt.Sprintf("%s soars through the sky at %d mph!", h.name, h.FlightSpeed)
}

// SpecialAbility 展开/收起翅膀
func (h *FlyingHero) SpecialAbility() string {
	h.wingsDeployed = !h.wingsDeployed
	status := "retracted"
	if h.wingsDeployed {
		status = "deployed"
	}
	return fmt.Sprintf("%s's wings are now %s!", h.name, status)
}

// WingsDeployed 翅膀是否展开
func (h *FlyingHero) WingsDeployed() bool { return h.wingsDeployed }

// Maneuvers 空中动作
var Maneuvers = []string{"barrel roll", "loop-de-loop", "steep dive", "vertical climb"}

// AerialManeuver 随机选择一个空中动作
func (h *FlyingHero) AerialManeuver(rng *rand.Rand) string {
	return fmt.Sprintf("%s performs a %s!", h.name, Maneuvers[rng.Intn(len(Maneuvers))])
}

// SpeedHero 超高速英雄
type SpeedHero struct {
	base
	MaxSpeed  int
	sprinting bool
}

// NewSpeedHero 创建速度英雄，能力值被限制在[0,100]
func NewSpeedHero(name, secretIdentity string, maxSpeed, powerLevel int) *SpeedHero {
	return &SpeedHero{base: newBase(name, secretIdentity, powerLevel), MaxSpeed: maxSpeed}
}

func (h *SpeedHero) Move() string {
	return fmt.Sprintf("%s races across the ground at %d mph!", h.name, h.MaxSpeed)
}

// SpecialAbility 切换冲刺模式
func (h *SpeedHero) SpecialAbility() string {
	h.sprinting = !h.sprinting
	mode := "Normal mode"
	if h.sprinting {
		mode = "Sprint mode"
	}
	return fmt.Sprintf("%s switches to %s!", h.name, mode)
}

// Sprinting 是否处于冲刺模式
func (h *SpeedHero) Sprinting() bool { return h.sprinting }

func (h *SpeedHero) TimeWarp() string {
	return fmt.Sprintf("%s moves so fast that time appears to slow down!", h.name)
}

// Demonstrate 输出英雄的移动、能力、权限和经验演示
func Demonstrate(w io.Writer, rng *rand.Rand) {
	swift := NewSpeedHero("Swift", "Barry Williams", 500, MaxPowerLevel)
	eagle := NewFlyingHero("Eagle Eye", "Sarah Hawks", 200, MaxPowerLevel)
	heroes := []Superhero{swift, eagle}

	fmt.Fprintln(w, "=== Hero Movement Demonstration ===")
	for _, h := range heroes {
		fmt.Fprintln(w, h.Move())
		fmt.Fprintln(w, h.SpecialAbility())
	}

	fmt.Fprintln(w, "\n=== Special Abilities ===")
	fmt.Fprintln(w, swift.TimeWarp())
	fmt.Fprintln(w, eagle.AerialManeuver(rng))

	fmt.Fprintln(w, "\n=== Security Test ===")
	fmt.Fprintf(w, "Clearance 1: %s\n", swift.RevealIdentity(1))
	fmt.Fprintf(w, "Clearance 5: %s\n", swift.RevealIdentity(5))

	fmt.Fprintln(w, "\n=== Experience System ===")
	for _, xp := range []int{50, 60} {
		if swift.GainExperience(xp) {
			fmt.Fprintf(w, "%s has leveled up! New power level: %d\n", swift.Name(), swift.PowerLevel())
		} else {
			fmt.Fprintf(w, "%s XP gained!\n", swift.Name())
		}
	}
	fmt.Fprintf(w, "%s power level: %d\n", swift.Name(), swift.PowerLevel())
}
