package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"wisefido-therapy/internal/client"
	"wisefido-therapy/internal/config"
	"wisefido-therapy/internal/service"
	"wisefido-therapy/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 运维检查工具：拉取某用户一段日期的依从性汇总并打印，用于人工核对数据管道。
// 上游地址等配置走环境变量（与服务一致）。
func main() {
	userID := flag.String("user", "", "user id")
	from := flag.String("from", time.Now().AddDate(0, 0, -7).Format("2006-01-02"), "range start (inclusive)")
	to := flag.String("to", time.Now().Format("2006-01-02"), "range end (inclusive)")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: check-compliance -user <id> [-from YYYY-MM-DD] [-to YYYY-MM-DD]")
		os.Exit(1)
	}

	cfg := config.Load()
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	actClient := client.NewACTClient(
		cfg.Upstream.HttpAddress,
		cfg.Upstream.APIToken,
		time.Duration(cfg.Upstream.TimeoutSeconds)*time.Second,
		logger,
	)
	svc := service.NewTreatmentService(
		actClient,
		store.NewMemoryKV(),
		logger,
		cfg.Fetch.Concurrency,
		time.Duration(cfg.Fetch.DiagTTLSeconds)*time.Second,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	report, err := svc.Compliance(ctx, uuid.NewString(), *userID, *from, *to, "", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "compliance fetch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("user %s  %s .. %s\n", report.UserID, report.From, report.To)
	fmt.Printf("actual:  sessions=%d sets=%d breaths=%d\n",
		report.Actual.Sessions, report.Actual.Sets, report.Actual.Breaths)
	fmt.Printf("targets: sessions=%d sets=%d breaths=%d\n",
		report.Targets.Sessions, report.Targets.Sets, report.Targets.Breaths)
	fmt.Println("days:")
	for _, d := range report.Days {
		fmt.Printf("  %s  sessions=%d sets=%d breaths=%d\n", d.Date, d.ActSessions, d.Sets, d.Breaths)
	}
	for _, p := range report.Prescriptions {
		fmt.Printf("prescription %s  applied %s..%s  %d/%d/%d\n",
			p.PrescriptionID, p.AppliedFrom, p.AppliedTo,
			p.SessionsPerDay, p.SetsPerSession, p.BreathsPerSet)
	}
}
