// relic.go — сервис жизненного цикла реликтов.
//
// Отвечает за создание реликтов (оригинал, правка, форк), доступ
// к ним с проверкой прав и срока хранения, обновление метаданных
// и разрешение цепочек версий.
//
// Инварианты:
//   - контент и поля идентичности (id, content_key, parent_id, fork_of)
//     после создания не меняются;
//   - каждая операция создания делает не более одной записи в хранилище
//     контента и ровно одну вставку метаданных;
//   - мягкое удаление не ломает обход цепочек — указатели потомков
//     остаются валидными, удалённый предок возвращается с пометкой.
package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigkaa/gorelic/internal/config"
	"github.com/bigkaa/gorelic/internal/domain/model"
	"github.com/bigkaa/gorelic/internal/repository"
	"github.com/bigkaa/gorelic/internal/storage/blobstore"
)

// maxChainDepth — предел глубины обхода цепочки версий.
// Защитная проверка от циклов, при корректных записях не достигается.
const maxChainDepth = 10000

// maxIDAttempts — число попыток генерации идентификатора при коллизии.
// 128 бит энтропии делают коллизию статистически ничтожной,
// но повторная генерация дешевле отказа клиенту.
const maxIDAttempts = 5

// CreateParams — параметры создания реликта.
type CreateParams struct {
	// Data — содержимое. Для правки и форка nil означает
	// переиспользование контента источника (metadata-only).
	Data []byte
	// ContentType — MIME-тип. Пустой — наследуется или text/plain.
	ContentType  string
	Name         *string
	Description  *string
	LanguageHint *string
	Tags         []string
	AccessLevel  model.AccessLevel
	// Password — пароль в открытом виде, хранится только хэш.
	Password *string
	// ExpiresIn — срок хранения: 1h, 24h, 7d, 30d, never.
	ExpiresIn string
	// ClientID — владелец (из X-Client-Key), nil для анонимных.
	ClientID *string
}

// UpdateParams — изменяемые метаданные реликта.
// nil-поле — не менять. Контент не обновляется никогда.
type UpdateParams struct {
	Name         *string
	Description  *string
	LanguageHint *string
	Tags         []string
	AccessLevel  *model.AccessLevel
	Password     *string
	// RemovePassword снимает парольную защиту.
	RemovePassword bool
	ExpiresIn      *string
}

// RelicService — сервис жизненного цикла реликтов.
type RelicService struct {
	cfg    *config.Config
	relics repository.RelicRepository
	blobs  blobstore.Store
	cache  *CacheService
	logger *slog.Logger
}

// NewRelicService создаёт сервис реликтов.
func NewRelicService(
	cfg *config.Config,
	relics repository.RelicRepository,
	blobs blobstore.Store,
	cache *CacheService,
	logger *slog.Logger,
) *RelicService {
	return &RelicService{
		cfg:    cfg,
		relics: relics,
		blobs:  blobs,
		cache:  cache,
		logger: logger.With(slog.String("component", "relic_service")),
	}
}

// newRelicID генерирует идентификатор реликта: 32 hex-символа,
// 128 бит энтропии из криптографически стойкого источника.
// ID одновременно служит bearer-токеном доступа к приватным реликтам.
func newRelicID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации идентификатора: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// hashPassword возвращает SHA-256 хэш пароля в hex.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// parseExpiresIn преобразует срок хранения в момент истечения.
// Допустимые значения: 1h, 24h, 7d, 30d, never и пустая строка (= never).
func parseExpiresIn(expiresIn string, now time.Time) (*time.Time, error) {
	var d time.Duration
	switch expiresIn {
	case "", "never":
		return nil, nil
	case "1h":
		d = time.Hour
	case "24h":
		d = 24 * time.Hour
	case "7d":
		d = 7 * 24 * time.Hour
	case "30d":
		d = 30 * 24 * time.Hour
	default:
		return nil, fmt.Errorf("недопустимый срок хранения %q: допустимы 1h, 24h, 7d, 30d, never", expiresIn)
	}
	t := now.Add(d)
	return &t, nil
}

// validateParams проверяет общие параметры создания.
func (s *RelicService) validateParams(p *CreateParams) *RelicError {
	if p.AccessLevel == "" {
		p.AccessLevel = model.AccessPublic
	}
	if !model.ValidAccessLevel(p.AccessLevel) {
		return errValidation(fmt.Sprintf("недопустимый уровень доступа %q", p.AccessLevel))
	}
	if p.Data != nil && int64(len(p.Data)) > s.cfg.MaxUploadSize {
		return errFileTooLarge(fmt.Sprintf(
			"размер содержимого %d байт превышает максимум %d байт",
			len(p.Data), s.cfg.MaxUploadSize))
	}
	if len(p.Tags) > 20 {
		return errValidation("слишком много тегов: максимум 20")
	}
	return nil
}

// CreateOriginal создаёт оригинальный реликт: новая цепочка версий,
// parent_id и fork_of пусты, версия 1.
func (s *RelicService) CreateOriginal(ctx context.Context, p CreateParams) (*model.Relic, *RelicError) {
	if p.Data == nil {
		return nil, errValidation("содержимое обязательно при создании оригинала")
	}
	if rerr := s.validateParams(&p); rerr != nil {
		return nil, rerr
	}

	expiresAt, err := parseExpiresIn(p.ExpiresIn, time.Now().UTC())
	if err != nil {
		return nil, errValidation(err.Error())
	}

	// 1. Генерируем идентификатор
	id, err := newRelicID()
	if err != nil {
		s.logger.Error("Ошибка генерации ID", slog.String("error", err.Error()))
		return nil, errInternal("ошибка генерации идентификатора")
	}

	// 2. Сохраняем содержимое
	key, checksum, err := s.blobs.Put(ctx, p.Data)
	if err != nil {
		s.logger.Error("Ошибка записи контента", slog.String("error", err.Error()))
		return nil, errStorageWrite("хранилище контента отклонило запись")
	}

	contentType := p.ContentType
	if contentType == "" {
		contentType = "text/plain"
	}

	// 3. Вставляем метаданные под блокировкой ключа контента.
	// ID возвращается клиенту только после успешной вставки: при сбое
	// частичного реликта не возникает, записанный blob остаётся
	// нессылаемым мусором до прохода очистки.
	rl := &model.Relic{
		ID:            id,
		ContentKey:    key,
		ContentType:   contentType,
		SizeBytes:     int64(len(p.Data)),
		Checksum:      checksum,
		RootID:        id,
		VersionNumber: 1,
		Name:          p.Name,
		Description:   p.Description,
		LanguageHint:  p.LanguageHint,
		Tags:          normalizeTags(p.Tags),
		AccessLevel:   p.AccessLevel,
		ClientID:      p.ClientID,
		ExpiresAt:     expiresAt,
	}
	if p.Password != nil && *p.Password != "" {
		h := hashPassword(*p.Password)
		rl.PasswordHash = &h
	}

	if rerr := s.insertRelic(ctx, rl, p.Data); rerr != nil {
		return nil, rerr
	}

	s.logger.Info("Реликт создан",
		slog.String("relic_id", id),
		slog.Int64("size", rl.SizeBytes),
		slog.String("content_type", contentType),
	)
	return rl, nil
}

// CreateEdit создаёт правку: новый реликт в той же цепочке версий.
// Источник должен существовать и не быть удалённым.
// Data = nil — metadata-only правка: новый реликт ссылается на тот же
// контент, байты источника не меняются.
func (s *RelicService) CreateEdit(ctx context.Context, sourceID string, p CreateParams) (*model.Relic, *RelicError) {
	source, rerr := s.loadSource(ctx, sourceID)
	if rerr != nil {
		return nil, rerr
	}
	if rerr := s.validateParams(&p); rerr != nil {
		return nil, rerr
	}

	rl, rerr := s.createDerived(ctx, source, p)
	if rerr != nil {
		return nil, rerr
	}

	// Правка продолжает цепочку источника и наследует атрибуцию форка
	rl.ParentID = &source.ID
	rl.ForkOf = source.ForkOf
	rl.RootID = source.RootID
	rl.VersionNumber = source.VersionNumber + 1

	if rerr := s.insertRelic(ctx, rl, p.Data); rerr != nil {
		return nil, rerr
	}

	s.logger.Info("Правка создана",
		slog.String("relic_id", rl.ID),
		slog.String("parent_id", source.ID),
		slog.Int("version", rl.VersionNumber),
	)
	return rl, nil
}

// CreateFork создаёт форк: независимую новую цепочку с атрибуцией
// источника. Форк — корень собственной цепочки: parent_id пуст,
// версия 1, root_id — собственный ID.
func (s *RelicService) CreateFork(ctx context.Context, sourceID string, p CreateParams) (*model.Relic, *RelicError) {
	source, rerr := s.loadSource(ctx, sourceID)
	if rerr != nil {
		return nil, rerr
	}
	if rerr := s.validateParams(&p); rerr != nil {
		return nil, rerr
	}

	rl, rerr := s.createDerived(ctx, source, p)
	if rerr != nil {
		return nil, rerr
	}

	rl.ForkOf = &source.ID
	rl.RootID = rl.ID
	rl.VersionNumber = 1

	if rerr := s.insertRelic(ctx, rl, p.Data); rerr != nil {
		return nil, rerr
	}

	s.logger.Info("Форк создан",
		slog.String("relic_id", rl.ID),
		slog.String("fork_of", source.ID),
	)
	return rl, nil
}

// loadSource загружает источник для правки или форка.
// Отсутствующий или мягко удалённый источник — NOT_FOUND.
func (s *RelicService) loadSource(ctx context.Context, sourceID string) (*model.Relic, *RelicError) {
	source, err := s.relics.GetByID(ctx, sourceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotFound(fmt.Sprintf("реликт %s не найден", sourceID))
		}
		s.logger.Error("Ошибка загрузки источника", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки источника")
	}
	return source, nil
}

// createDerived готовит производный реликт: генерирует ID,
// сохраняет новый контент либо переиспользует контент источника.
// Поля цепочки (parent_id, fork_of, root_id, version_number)
// заполняет вызывающий.
func (s *RelicService) createDerived(ctx context.Context, source *model.Relic, p CreateParams) (*model.Relic, *RelicError) {
	expiresAt, err := parseExpiresIn(p.ExpiresIn, time.Now().UTC())
	if err != nil {
		return nil, errValidation(err.Error())
	}

	id, err := newRelicID()
	if err != nil {
		s.logger.Error("Ошибка генерации ID", slog.String("error", err.Error()))
		return nil, errInternal("ошибка генерации идентификатора")
	}

	rl := &model.Relic{
		ID:           id,
		Name:         p.Name,
		Description:  p.Description,
		LanguageHint: p.LanguageHint,
		Tags:         normalizeTags(p.Tags),
		AccessLevel:  p.AccessLevel,
		ClientID:     p.ClientID,
		ExpiresAt:    expiresAt,
	}
	if p.Password != nil && *p.Password != "" {
		h := hashPassword(*p.Password)
		rl.PasswordHash = &h
	}

	if p.Data == nil {
		// Metadata-only: новый реликт указывает на контент источника.
		// Допустимо при неизменяемости — байты никогда не переписываются.
		rl.ContentKey = source.ContentKey
		rl.ContentType = source.ContentType
		rl.SizeBytes = source.SizeBytes
		rl.Checksum = source.Checksum
	} else {
		key, checksum, err := s.blobs.Put(ctx, p.Data)
		if err != nil {
			s.logger.Error("Ошибка записи контента", slog.String("error", err.Error()))
			return nil, errStorageWrite("хранилище контента отклонило запись")
		}
		rl.ContentKey = key
		rl.SizeBytes = int64(len(p.Data))
		rl.Checksum = checksum
		rl.ContentType = p.ContentType
		if rl.ContentType == "" {
			rl.ContentType = source.ContentType
		}
	}

	// Наследуем подсказку языка, если не задана явно
	if rl.LanguageHint == nil {
		rl.LanguageHint = source.LanguageHint
	}
	return rl, nil
}

// insertRelic вставляет метаданные под advisory-блокировкой ключа контента.
//
// Блокировка закрывает гонку с фоновой очисткой: Put — no-op для
// существующего ключа, и sweep мог удалить блоб между Put и вставкой
// строки. Под блокировкой существование блоба проверяется повторно,
// при необходимости контент записывается заново — строка метаданных
// никогда не коммитится с указателем на отсутствующий блоб.
//
// Коллизия идентификатора повторяет генерацию до maxIDAttempts раз.
func (s *RelicService) insertRelic(ctx context.Context, rl *model.Relic, data []byte) *RelicError {
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		err := s.relics.WithContentKeyLock(ctx, rl.ContentKey, func(ctx context.Context) error {
			exists, err := s.blobs.Exists(ctx, rl.ContentKey)
			if err != nil {
				return err
			}
			if !exists {
				if data == nil {
					// Metadata-only производный реликт: контент источника
					// уже удалён окончательно, восстановить нечем
					return blobstore.ErrNotFound
				}
				if _, _, err := s.blobs.Put(ctx, data); err != nil {
					return err
				}
			}
			return s.relics.Create(ctx, rl)
		})

		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrConflict):
			id, genErr := newRelicID()
			if genErr != nil {
				s.logger.Error("Ошибка генерации ID", slog.String("error", genErr.Error()))
				return errInternal("ошибка генерации идентификатора")
			}
			s.logger.Warn("Коллизия идентификатора реликта, повторная генерация",
				slog.String("relic_id", rl.ID),
				slog.Int("attempt", attempt),
			)
			// Оригинал — корень собственной цепочки, root_id следует за ID
			if rl.RootID == rl.ID {
				rl.RootID = id
			}
			rl.ID = id
		case errors.Is(err, blobstore.ErrNotFound):
			s.logger.Error("Контент источника отсутствует в хранилище",
				slog.String("content_key", rl.ContentKey),
			)
			return errInternal("содержимое источника недоступно")
		default:
			s.logger.Error("Ошибка вставки метаданных", slog.String("error", err.Error()))
			return errInternal("ошибка сохранения метаданных")
		}
	}
	return errInternal("не удалось подобрать уникальный идентификатор реликта")
}

// Get возвращает реликт с проверкой срока хранения и пароля.
// password — значение из запроса, пустая строка при отсутствии.
// countAccess — увеличивать ли счётчик просмотров.
func (s *RelicService) Get(ctx context.Context, id, password string, countAccess bool) (*model.Relic, *RelicError) {
	rl, ok := s.cache.Get(id)
	if !ok {
		var err error
		rl, err = s.relics.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, errNotFound(fmt.Sprintf("реликт %s не найден", id))
			}
			s.logger.Error("Ошибка загрузки реликта", slog.String("error", err.Error()))
			return nil, errInternal("ошибка загрузки реликта")
		}
		s.cache.Set(id, rl)
	}

	// Просроченный реликт до прохода sweep — 410, не 404:
	// клиент различает "никогда не было" и "срок истёк"
	if rl.Expired(time.Now().UTC()) {
		return nil, errGone(fmt.Sprintf("срок хранения реликта %s истёк", id))
	}

	if rl.PasswordHash != nil {
		if password == "" {
			return nil, errUnauthorized("реликт защищён паролем")
		}
		given := hashPassword(password)
		if subtle.ConstantTimeCompare([]byte(given), []byte(*rl.PasswordHash)) != 1 {
			return nil, errForbidden("неверный пароль")
		}
	}

	if countAccess {
		// Счётчик — best effort, ошибка не блокирует ответ
		if err := s.relics.IncrementAccessCount(ctx, id); err != nil {
			s.logger.Warn("Ошибка инкремента счётчика просмотров",
				slog.String("relic_id", id),
				slog.String("error", err.Error()),
			)
		} else {
			rl.AccessCount++
		}
	}
	return rl, nil
}

// GetContent возвращает содержимое реликта из хранилища контента.
func (s *RelicService) GetContent(ctx context.Context, rl *model.Relic) ([]byte, *RelicError) {
	data, err := s.blobs.Get(ctx, rl.ContentKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Error("Контент отсутствует в хранилище",
				slog.String("relic_id", rl.ID),
				slog.String("content_key", rl.ContentKey),
			)
			return nil, errInternal("содержимое реликта недоступно")
		}
		s.logger.Error("Ошибка чтения контента", slog.String("error", err.Error()))
		return nil, errInternal("ошибка чтения содержимого")
	}
	return data, nil
}

// ResolveChain возвращает полную цепочку версий реликта, старые первыми.
// Обход ограничен maxChainDepth: превышение или цикл — LINEAGE_CORRUPTION.
// Мягко удалённые звенья включаются с пометкой deleted_at.
func (s *RelicService) ResolveChain(ctx context.Context, id string) ([]*model.Relic, *RelicError) {
	// Удалённый реликт не скрывает цепочку: GetAny
	rl, err := s.relics.GetAny(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotFound(fmt.Sprintf("реликт %s не найден", id))
		}
		s.logger.Error("Ошибка загрузки реликта", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки реликта")
	}

	// Обратный проход к корню: подтверждаем целостность цепочки.
	// root_id персистентен, но защитная проверка от циклов обязательна.
	rootID, rerr := s.walkToRoot(ctx, rl)
	if rerr != nil {
		return nil, rerr
	}

	chain, err := s.relics.ListByRoot(ctx, rootID)
	if err != nil {
		s.logger.Error("Ошибка загрузки цепочки", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки цепочки версий")
	}
	if len(chain) > maxChainDepth {
		return nil, errLineageCorruption(
			fmt.Sprintf("цепочка реликта %s превышает предел %d", id, maxChainDepth))
	}
	return chain, nil
}

// walkToRoot идёт по parent_id к корню цепочки.
// Циклы и превышение глубины — ошибка целостности.
// Жёстко удалённый предок обрывает цепочку: самое раннее достижимое
// звено считается корнем.
func (s *RelicService) walkToRoot(ctx context.Context, rl *model.Relic) (string, *RelicError) {
	seen := map[string]bool{rl.ID: true}
	current := rl

	for depth := 0; current.ParentID != nil; depth++ {
		if depth >= maxChainDepth {
			return "", errLineageCorruption(
				fmt.Sprintf("глубина цепочки реликта %s превышает предел %d", rl.ID, maxChainDepth))
		}

		parentID := *current.ParentID
		if seen[parentID] {
			return "", errLineageCorruption(
				fmt.Sprintf("цикл в цепочке реликта %s через %s", rl.ID, parentID))
		}
		seen[parentID] = true

		parent, err := s.relics.GetAny(ctx, parentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Предок удалён окончательно — текущее звено становится корнем
				s.logger.Warn("Предок отсутствует, цепочка обрезана",
					slog.String("relic_id", rl.ID),
					slog.String("missing_parent", parentID),
				)
				return current.RootID, nil
			}
			s.logger.Error("Ошибка обхода цепочки", slog.String("error", err.Error()))
			return "", errInternal("ошибка обхода цепочки версий")
		}
		current = parent
	}
	return current.RootID, nil
}

// ResolveForks возвращает форки реликта, новые первыми.
func (s *RelicService) ResolveForks(ctx context.Context, id string) ([]*model.Relic, *RelicError) {
	if _, err := s.relics.GetAny(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotFound(fmt.Sprintf("реликт %s не найден", id))
		}
		s.logger.Error("Ошибка загрузки реликта", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки реликта")
	}

	forks, err := s.relics.ListForks(ctx, id)
	if err != nil {
		s.logger.Error("Ошибка загрузки форков", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки форков")
	}
	return forks, nil
}

// List возвращает реликты с фильтрацией.
func (s *RelicService) List(ctx context.Context, filters repository.RelicListFilters, limit, offset int) ([]*model.Relic, int, *RelicError) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	relics, err := s.relics.List(ctx, filters, limit, offset)
	if err != nil {
		s.logger.Error("Ошибка загрузки списка", slog.String("error", err.Error()))
		return nil, 0, errInternal("ошибка загрузки списка реликтов")
	}
	total, err := s.relics.Count(ctx, filters)
	if err != nil {
		s.logger.Error("Ошибка подсчёта списка", slog.String("error", err.Error()))
		return nil, 0, errInternal("ошибка загрузки списка реликтов")
	}
	return relics, total, nil
}

// Update изменяет метаданные реликта. Контент неизменяем.
// Менять метаданные может владелец либо администратор.
func (s *RelicService) Update(ctx context.Context, id string, clientID string, isAdmin bool, p UpdateParams) (*model.Relic, *RelicError) {
	rl, err := s.relics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotFound(fmt.Sprintf("реликт %s не найден", id))
		}
		s.logger.Error("Ошибка загрузки реликта", slog.String("error", err.Error()))
		return nil, errInternal("ошибка загрузки реликта")
	}

	if rerr := s.checkOwnership(rl, clientID, isAdmin); rerr != nil {
		return nil, rerr
	}

	if p.Name != nil {
		rl.Name = p.Name
	}
	if p.Description != nil {
		rl.Description = p.Description
	}
	if p.LanguageHint != nil {
		rl.LanguageHint = p.LanguageHint
	}
	if p.Tags != nil {
		if len(p.Tags) > 20 {
			return nil, errValidation("слишком много тегов: максимум 20")
		}
		rl.Tags = normalizeTags(p.Tags)
	}
	if p.AccessLevel != nil {
		if !model.ValidAccessLevel(*p.AccessLevel) {
			return nil, errValidation(fmt.Sprintf("недопустимый уровень доступа %q", *p.AccessLevel))
		}
		rl.AccessLevel = *p.AccessLevel
	}
	if p.RemovePassword {
		rl.PasswordHash = nil
	} else if p.Password != nil && *p.Password != "" {
		h := hashPassword(*p.Password)
		rl.PasswordHash = &h
	}
	if p.ExpiresIn != nil {
		expiresAt, perr := parseExpiresIn(*p.ExpiresIn, time.Now().UTC())
		if perr != nil {
			return nil, errValidation(perr.Error())
		}
		rl.ExpiresAt = expiresAt
	}

	if err := s.relics.UpdateMetadata(ctx, rl); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, errConflict("реликт был изменён параллельно, повторите запрос")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errNotFound(fmt.Sprintf("реликт %s не найден", id))
		}
		s.logger.Error("Ошибка обновления метаданных", slog.String("error", err.Error()))
		return nil, errInternal("ошибка обновления метаданных")
	}

	s.cache.Delete(id)
	s.logger.Info("Метаданные обновлены", slog.String("relic_id", id))
	return rl, nil
}

// Delete выполняет мягкое удаление реликта.
// Окончательное удаление делает фоновый sweep после срока хранения корзины.
func (s *RelicService) Delete(ctx context.Context, id string, clientID string, isAdmin bool) *RelicError {
	rl, err := s.relics.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound(fmt.Sprintf("реликт %s не найден", id))
		}
		s.logger.Error("Ошибка загрузки реликта", slog.String("error", err.Error()))
		return errInternal("ошибка загрузки реликта")
	}

	if rerr := s.checkOwnership(rl, clientID, isAdmin); rerr != nil {
		return rerr
	}

	if err := s.relics.MarkDeleted(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errNotFound(fmt.Sprintf("реликт %s не найден", id))
		}
		s.logger.Error("Ошибка удаления реликта", slog.String("error", err.Error()))
		return errInternal("ошибка удаления реликта")
	}

	s.cache.Delete(id)
	s.logger.Info("Реликт удалён", slog.String("relic_id", id))
	return nil
}

// checkOwnership проверяет право изменять реликт.
// Анонимные реликты (без владельца) может менять только администратор.
func (s *RelicService) checkOwnership(rl *model.Relic, clientID string, isAdmin bool) *RelicError {
	if isAdmin {
		return nil
	}
	if rl.ClientID == nil || clientID == "" || *rl.ClientID != clientID {
		return errForbidden("изменение реликта доступно только владельцу")
	}
	return nil
}

// normalizeTags убирает пустые теги и дубликаты, сохраняя порядок.
func normalizeTags(tags []string) []string {
	result := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		result = append(result, t)
	}
	return result
}
