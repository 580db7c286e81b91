package motivation

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/hitoshi/moodmate/internal/model"
	"github.com/hitoshi/moodmate/internal/repository"
)

// Picker は気分カテゴリのメッセージから1件を一様ランダムに選ぶ。
type Picker struct {
	repo repository.MotivationRepository
	intn func(n int) int
}

// NewPicker はPickerを生成する。
func NewPicker(repo repository.MotivationRepository) *Picker {
	return &Picker{repo: repo, intn: rand.Intn}
}

// NewPickerWithRand は乱数関数を指定してPickerを生成する。intnは[0, n)の整数を返すこと。
func NewPickerWithRand(repo repository.MotivationRepository, intn func(n int) int) *Picker {
	return &Picker{repo: repo, intn: intn}
}

// Pick はmoodTypeのメッセージを1件返す。該当するメッセージが無い場合はnilを返す。
func (p *Picker) Pick(ctx context.Context, moodType model.MoodType) (*model.MotivationalMessage, error) {
	msgs, err := p.repo.ListByMoodType(ctx, moodType)
	if err != nil {
		return nil, fmt.Errorf("failed to list motivational messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	return msgs[p.intn(len(msgs))], nil
}
