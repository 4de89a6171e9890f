package data

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"DocTrack/internal/conf"
	"DocTrack/internal/model"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/qdrant/go-client/qdrant"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Data 结构体持有所有数据库句柄
type Data struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Minio  *minio.Client
	Qdrant *qdrant.Client // 仅 KB_VECTOR_BACKEND=qdrant 时非空

	Bucket string
}

// Migrate 建表/改表，测试里对 sqlite 复用同一份清单
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Document{},
		&model.DocumentVersion{},
		&model.ComplianceTask{},
		&model.KnowledgeEntry{},
	)
}

func NewData(cfg *conf.Config, log *zap.Logger) (*Data, func(), error) {
	// -------------------------------------------------------
	// 1. 连接 Postgres + 自动迁移
	// -------------------------------------------------------
	pgDB, err := gorm.Open(postgres.Open(cfg.Data.DatabaseSource), &gorm.Config{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := Migrate(pgDB); err != nil {
		return nil, nil, fmt.Errorf("schema migration failed: %w", err)
	}
	log.Info("✅ 数据库表结构迁移完成")

	// -------------------------------------------------------
	// 2. 初始化 Redis（定时扫描的分布式锁用）
	// -------------------------------------------------------
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Data.RedisAddr,
		Password: cfg.Data.RedisPassword,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	log.Info("✅ Redis 连接成功")

	// -------------------------------------------------------
	// 3. 初始化 MinIO，自动创建 Bucket
	// -------------------------------------------------------
	minioClient, err := minio.New(cfg.Data.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Data.MinioAccessKey, cfg.Data.MinioSecretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("minio init failed: %w", err)
	}

	bucketName := cfg.Data.MinioBucket
	exists, err := minioClient.BucketExists(context.Background(), bucketName)
	if err != nil {
		return nil, nil, fmt.Errorf("minio bucket check failed: %w", err)
	}
	if !exists {
		if err := minioClient.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, nil, fmt.Errorf("minio bucket create failed: %w", err)
		}
		log.Info("🎉 MinIO Bucket 创建成功", zap.String("bucket", bucketName))
	} else {
		log.Info("✅ MinIO 连接成功", zap.String("bucket", bucketName))
	}

	d := &Data{
		DB:     pgDB,
		Redis:  rdb,
		Minio:  minioClient,
		Bucket: bucketName,
	}

	// -------------------------------------------------------
	// 4. Qdrant 是可选依赖：默认走库内余弦扫描
	// -------------------------------------------------------
	if cfg.KB.VectorBackend == "qdrant" {
		host, port := parseHostPort(cfg.Data.QdrantAddr, "localhost", 6334)
		qc, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
		if err != nil {
			return nil, nil, fmt.Errorf("qdrant init failed: %w", err)
		}
		ensureCollection(qc, cfg.Data.QdrantCollection, uint64(cfg.KB.EmbeddingDimension), log)
		d.Qdrant = qc
	}

	cleanup := func() {
		log.Info("正在关闭数据层资源...")
		if sqlDB, err := d.DB.DB(); err == nil {
			sqlDB.Close()
		}
		d.Redis.Close()
		if d.Qdrant != nil {
			d.Qdrant.Close()
		}
	}

	return d, cleanup, nil
}

// 辅助函数: 解析 "host:port" 字符串
func parseHostPort(addr string, defaultHost string, defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return defaultHost, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}

// ensureCollection 确保向量集合存在；向量库挂了不阻塞主程序启动
func ensureCollection(client *qdrant.Client, name string, dim uint64, log *zap.Logger) {
	ctx := context.Background()

	collections, err := client.ListCollections(ctx)
	if err != nil {
		log.Warn("⚠️ 无法连接 Qdrant，语义检索将不可用", zap.Error(err))
		return
	}

	for _, c := range collections {
		if c == name {
			log.Info("✅ Qdrant 连接成功", zap.String("collection", name))
			return
		}
	}

	// 维度必须和 embedding 模型一致
	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dim,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		log.Error("❌ 创建 Collection 失败", zap.Error(err))
		return
	}
	log.Info("🎉 Qdrant Collection 创建成功", zap.String("collection", name))
}
