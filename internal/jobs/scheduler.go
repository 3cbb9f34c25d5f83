// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает ежедневный отчёт администраторам магазина.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/gamestore-bot/internal/features/store"
)

// ReportSource — откуда берутся данные отчёта. Реализуется store.Service.
type ReportSource interface {
	Stats(ctx context.Context) (*store.Stats, error)
	AdminIDs(ctx context.Context) []int64
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	loc      *time.Location
	source   ReportSource
	sendFunc func(userID int64, text string)
}

// NewScheduler создаёт планировщик. schedule — расписание в формате cron (5 полей).
func NewScheduler(source ReportSource, schedule string, loc *time.Location, sendFunc func(userID int64, text string)) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		schedule: schedule,
		loc:      loc,
		source:   source,
		sendFunc: sendFunc,
	}
}

// Start регистрирует задачи и запускает cron. Ошибка — некорректное расписание.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		log.Info("[CRON] Ежедневный отчёт")
		if n, err := s.SendDailyReport(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка отчёта")
		} else {
			log.WithField("admins", n).Debug("[CRON] Отчёт разослан")
		}
	})
	if err != nil {
		return fmt.Errorf("некорректный REPORT_CRON %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{"schedule": s.schedule, "tz": s.loc.String()}).Info("Планировщик задач запущен")
	return nil
}

// SendDailyReport отправляет сводку магазина всем администраторам.
// Возвращает число получателей.
func (s *Scheduler) SendDailyReport(ctx context.Context) (int, error) {
	stats, err := s.source.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка сбора статистики: %w", err)
	}

	admins := s.source.AdminIDs(ctx)
	if len(admins) == 0 {
		return 0, nil
	}

	date := time.Now().In(s.loc).Format("02.01.2006")
	text := fmt.Sprintf("🗓 Отчёт за %s\n\n%s", date, store.FormatStats(stats))
	for _, id := range admins {
		s.sendFunc(id, text)
	}
	return len(admins), nil
}

// Stop останавливает планировщик и ждёт завершения запущенных задач.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
